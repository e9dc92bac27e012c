// Package notifications computes who must be told about an activity
// transition and delivers persisted notifications to outbound channels.
package notifications

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/yigit/communityhub/internal/app/models"
)

// Directory answers membership, role, follow and block questions. It is
// implemented by the community and graph repositories.
type Directory interface {
	Members(ctx context.Context, communityID int64) ([]int64, error)
	IsMember(ctx context.Context, communityID, userID int64) (bool, error)
	IsModerator(ctx context.Context, communityID, userID int64) (bool, error)
	Moderators(ctx context.Context, communityID int64) ([]int64, error)
	Admins(ctx context.Context, communityID int64) ([]int64, error)
	FollowersOf(ctx context.Context, userID int64) ([]int64, error)
	TagFollowersOf(ctx context.Context, tags []string) ([]int64, error)
	// BlockRelations returns users who block userID or are blocked by userID
	BlockRelations(ctx context.Context, userID int64) ([]int64, error)
	// UserIDsByUsername matches usernames case-insensitively and keys the
	// result by lowercased username
	UserIDsByUsername(ctx context.Context, usernames []string) (map[string]int64, error)
}

type userSet map[int64]struct{}

func newUserSet(ids []int64) userSet {
	s := make(userSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s userSet) has(id int64) bool {
	_, ok := s[id]
	return ok
}

type memberKey struct {
	communityID int64
	userID      int64
}

// Lookup memoizes directory answers for the duration of one operation. Create
// one per fan-out or feed page and drop it afterwards.
type Lookup struct {
	dir Directory

	mu          sync.Mutex
	members     map[int64]userSet
	moderators  map[int64]userSet
	blocks      map[int64]userSet
	followers   map[int64][]int64
	isMember    map[memberKey]bool
	isModerator map[memberKey]bool
}

// NewLookup creates an empty memo over dir
func NewLookup(dir Directory) *Lookup {
	return &Lookup{
		dir:         dir,
		members:     make(map[int64]userSet),
		moderators:  make(map[int64]userSet),
		blocks:      make(map[int64]userSet),
		followers:   make(map[int64][]int64),
		isMember:    make(map[memberKey]bool),
		isModerator: make(map[memberKey]bool),
	}
}

// Directory returns the underlying collaborator
func (l *Lookup) Directory() Directory {
	return l.dir
}

func (l *Lookup) memberSet(ctx context.Context, communityID int64) (userSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.members[communityID]; ok {
		return s, nil
	}
	ids, err := l.dir.Members(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("error loading members of community %d: %w", communityID, err)
	}
	s := newUserSet(ids)
	l.members[communityID] = s
	return s, nil
}

func (l *Lookup) moderatorSet(ctx context.Context, communityID int64) (userSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.moderators[communityID]; ok {
		return s, nil
	}
	mods, err := l.dir.Moderators(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("error loading moderators of community %d: %w", communityID, err)
	}
	admins, err := l.dir.Admins(ctx, communityID)
	if err != nil {
		return nil, fmt.Errorf("error loading admins of community %d: %w", communityID, err)
	}
	s := newUserSet(append(mods, admins...))
	l.moderators[communityID] = s
	return s, nil
}

func (l *Lookup) blockSet(ctx context.Context, userID int64) (userSet, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.blocks[userID]; ok {
		return s, nil
	}
	ids, err := l.dir.BlockRelations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading block relations of user %d: %w", userID, err)
	}
	s := newUserSet(ids)
	l.blocks[userID] = s
	return s, nil
}

// IsBlocked reports whether a blocks b or b blocks a
func (l *Lookup) IsBlocked(ctx context.Context, a, b int64) (bool, error) {
	s, err := l.blockSet(ctx, a)
	if err != nil {
		return false, err
	}
	return s.has(b), nil
}

// BlockedWith returns every user in a block relation with userID
func (l *Lookup) BlockedWith(ctx context.Context, userID int64) ([]int64, error) {
	s, err := l.blockSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	return sortedIDs(s), nil
}

// IsMember reports membership of userID in communityID
func (l *Lookup) IsMember(ctx context.Context, communityID, userID int64) (bool, error) {
	key := memberKey{communityID, userID}
	l.mu.Lock()
	if v, ok := l.isMember[key]; ok {
		l.mu.Unlock()
		return v, nil
	}
	l.mu.Unlock()

	v, err := l.dir.IsMember(ctx, communityID, userID)
	if err != nil {
		return false, fmt.Errorf("error checking membership: %w", err)
	}
	l.mu.Lock()
	l.isMember[key] = v
	l.mu.Unlock()
	return v, nil
}

// IsModerator reports whether userID moderates communityID
func (l *Lookup) IsModerator(ctx context.Context, communityID, userID int64) (bool, error) {
	key := memberKey{communityID, userID}
	l.mu.Lock()
	if v, ok := l.isModerator[key]; ok {
		l.mu.Unlock()
		return v, nil
	}
	l.mu.Unlock()

	v, err := l.dir.IsModerator(ctx, communityID, userID)
	if err != nil {
		return false, fmt.Errorf("error checking moderator role: %w", err)
	}
	l.mu.Lock()
	l.isModerator[key] = v
	l.mu.Unlock()
	return v, nil
}

func (l *Lookup) followersOf(ctx context.Context, userID int64) ([]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ids, ok := l.followers[userID]; ok {
		return ids, nil
	}
	ids, err := l.dir.FollowersOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading followers of user %d: %w", userID, err)
	}
	l.followers[userID] = ids
	return ids, nil
}

// Role is a reason a user qualifies for a notification. Lower values take
// precedence.
type Role int

const (
	RoleParentOwner Role = iota
	RoleMentioned
	RoleTagFollower
	RoleUserFollower
	RoleModerator
)

// Verb returns the notification verb emitted for the role
func (r Role) Verb() models.Verb {
	switch r {
	case RoleParentOwner:
		return models.VerbReshare
	case RoleMentioned:
		return models.VerbMention
	case RoleTagFollower:
		return models.VerbFollowedTag
	case RoleUserFollower:
		return models.VerbFollowedUser
	case RoleModerator:
		return models.VerbFlag
	}
	return ""
}

func (r Role) String() string {
	switch r {
	case RoleParentOwner:
		return "parent_owner"
	case RoleMentioned:
		return "mentioned"
	case RoleTagFollower:
		return "tag_follower"
	case RoleUserFollower:
		return "user_follower"
	case RoleModerator:
		return "moderator"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// Resolver turns an activity and a role into recipients
type Resolver struct {
	lookup *Lookup
}

// NewResolver creates a Resolver reading through lookup
func NewResolver(lookup *Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// BaseSet returns community members minus every user in a block relation
// with the activity owner.
func (r *Resolver) BaseSet(ctx context.Context, a *models.Activity) (map[int64]struct{}, error) {
	members, err := r.lookup.memberSet(ctx, a.CommunityID)
	if err != nil {
		return nil, err
	}
	blocked, err := r.lookup.blockSet(ctx, a.OwnerID)
	if err != nil {
		return nil, err
	}
	base := make(map[int64]struct{}, len(members))
	for id := range members {
		if !blocked.has(id) {
			base[id] = struct{}{}
		}
	}
	return base, nil
}

// Resolve returns the sorted recipients qualifying under role. Owner, editor
// and parent owner are never returned for content roles; the parent owner is
// only returned for RoleParentOwner. Users listed in exclude are dropped too.
func (r *Resolver) Resolve(ctx context.Context, a *models.Activity, role Role, exclude ...int64) ([]int64, error) {
	if role == RoleModerator {
		return r.moderators(ctx, a, exclude)
	}

	base, err := r.BaseSet(ctx, a)
	if err != nil {
		return nil, err
	}

	skip := newUserSet(exclude)
	skip[a.OwnerID] = struct{}{}
	if a.EditorID != nil {
		skip[*a.EditorID] = struct{}{}
	}

	var candidates []int64
	switch role {
	case RoleParentOwner:
		if !a.IsReshare || a.ParentOwnerID == nil {
			return nil, nil
		}
		candidates = []int64{*a.ParentOwnerID}
	case RoleMentioned:
		candidates, err = r.mentioned(ctx, a)
	case RoleTagFollower:
		candidates, err = r.tagFollowers(ctx, a)
	case RoleUserFollower:
		candidates, err = r.lookup.followersOf(ctx, a.OwnerID)
	default:
		return nil, fmt.Errorf("unknown recipient role %s", role)
	}
	if err != nil {
		return nil, err
	}
	if role != RoleParentOwner && a.ParentOwnerID != nil {
		skip[*a.ParentOwnerID] = struct{}{}
	}

	out := make(userSet, len(candidates))
	for _, id := range candidates {
		if _, ok := base[id]; !ok || skip.has(id) {
			continue
		}
		out[id] = struct{}{}
	}
	return sortedIDs(out), nil
}

func (r *Resolver) mentioned(ctx context.Context, a *models.Activity) ([]int64, error) {
	return mentionedUsers(ctx, r.lookup.dir, a.ExtractMentions())
}

// mentionedUsers resolves mentioned usernames without regard to case, in
// order of first mention.
func mentionedUsers(ctx context.Context, dir Directory, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	lowered := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(name)
		if !slices.Contains(lowered, name) {
			lowered = append(lowered, name)
		}
	}
	byName, err := dir.UserIDsByUsername(ctx, lowered)
	if err != nil {
		return nil, fmt.Errorf("error resolving mentioned users: %w", err)
	}
	ids := make([]int64, 0, len(byName))
	for _, name := range lowered {
		if id, ok := byName[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *Resolver) tagFollowers(ctx context.Context, a *models.Activity) ([]int64, error) {
	tags := a.ExtractHashtags()
	if len(tags) == 0 {
		return nil, nil
	}
	ids, err := r.lookup.dir.TagFollowersOf(ctx, tags)
	if err != nil {
		return nil, fmt.Errorf("error loading tag followers: %w", err)
	}
	return ids, nil
}

func (r *Resolver) moderators(ctx context.Context, a *models.Activity, exclude []int64) ([]int64, error) {
	mods, err := r.lookup.moderatorSet(ctx, a.CommunityID)
	if err != nil {
		return nil, err
	}
	skip := newUserSet(exclude)
	out := make(userSet, len(mods))
	for id := range mods {
		if !skip.has(id) {
			out[id] = struct{}{}
		}
	}
	return sortedIDs(out), nil
}

func sortedIDs(s userSet) []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
