package storage

import (
	"context"
	"sort"
	"strings"
	"time"

	"chatcart/pkg"
)

// Ring buffer capacities of the memory record.
const (
	MaxChatHistory       = 10
	MaxRecentProducts    = 5
	MaxMentionedProducts = 10
)

// Store is the durable per-user memory. Merge is an atomic
// read-modify-write: scalars are last-writer-wins, counters are added and
// ring buffers are appended, never overwritten wholesale.
type Store interface {
	// Get returns the user's record, or a fresh default record when none
	// has been written yet.
	Get(ctx context.Context, userID string) (*Record, error)
	Merge(ctx context.Context, userID string, patch Patch) (*Record, error)
	Close() error
}

// ConversationContext is the part of the session context that survives a reset.
type ConversationContext struct {
	CurrentCategory string      `json:"currentCategory,omitempty"`
	ActiveFilters   pkg.Filters `json:"activeFilters"`
	LastIntent      pkg.Intent  `json:"lastIntent,omitempty"`
	LastUpdated     time.Time   `json:"lastUpdated"`
}

// Record is the durable memory of one user.
type Record struct {
	UserID             string              `json:"userId"`
	UserName           string              `json:"userName,omitempty"`
	FirstSeenAt        time.Time           `json:"firstSeenAt"`
	LastSeenAt         time.Time           `json:"lastSeenAt"`
	TotalOrders        int                 `json:"totalOrders"`
	TotalCartAdds      int                 `json:"totalCartAdds"`
	CartMirror         []pkg.CartLine      `json:"cartMirror"`
	FavoriteCategories []pkg.CategoryCount `json:"favoriteCategories"`
	RecentProducts     []pkg.ProductRef    `json:"recentProducts"`
	MentionedProducts  []pkg.ProductRef    `json:"mentionedProducts"`
	ChatHistory        []pkg.ChatEntry     `json:"chatHistory"`
	LastUserUtterance  string              `json:"lastUserUtterance"`
	LastAssistantReply string              `json:"lastAssistantReply"`
	IsNewUser          bool                `json:"isNewUser"`
	Context            ConversationContext `json:"conversationContext"`
}

// NewRecord returns the default record for a user seen for the first time.
func NewRecord(userID string, now time.Time) *Record {
	now = now.UTC()
	return &Record{
		UserID:             userID,
		FirstSeenAt:        now,
		LastSeenAt:         now,
		CartMirror:         []pkg.CartLine{},
		FavoriteCategories: []pkg.CategoryCount{},
		RecentProducts:     []pkg.ProductRef{},
		MentionedProducts:  []pkg.ProductRef{},
		ChatHistory:        []pkg.ChatEntry{},
		IsNewUser:          true,
	}
}

// Patch is one merge-write. Nil pointers leave the field untouched.
type Patch struct {
	UserName           *string
	LastUserUtterance  *string
	LastAssistantReply *string
	ChatAppend         []pkg.ChatEntry
	// CartMirror replaces the mirror when non-nil; an empty slice clears it.
	CartMirror *[]pkg.CartLine
	// Added products count as cart additions: totalCartAdds, recent,
	// mentioned and favorite categories all move.
	Added []pkg.ProductRef
	// Mentioned products were shown to the user.
	Mentioned       []pkg.ProductRef
	OrdersDelta     int
	ActiveFilters   *pkg.Filters
	CurrentCategory *string
	LastIntent      pkg.Intent
}

// Apply merges the patch into the record using the domain rule of each field.
func (r *Record) Apply(p Patch, now time.Time) {
	now = now.UTC()
	if r.FirstSeenAt.IsZero() {
		r.FirstSeenAt = now
	}
	r.LastSeenAt = now
	r.IsNewUser = false

	if p.UserName != nil && *p.UserName != "" {
		r.UserName = *p.UserName
	}
	if p.LastUserUtterance != nil {
		r.LastUserUtterance = *p.LastUserUtterance
	}
	if p.LastAssistantReply != nil {
		r.LastAssistantReply = *p.LastAssistantReply
	}

	r.ChatHistory = append(r.ChatHistory, p.ChatAppend...)
	if n := len(r.ChatHistory); n > MaxChatHistory {
		r.ChatHistory = append([]pkg.ChatEntry(nil), r.ChatHistory[n-MaxChatHistory:]...)
	}

	if p.CartMirror != nil {
		r.CartMirror = append([]pkg.CartLine{}, (*p.CartMirror)...)
	}

	if p.OrdersDelta > 0 {
		r.TotalOrders += p.OrdersDelta
	}

	for _, ref := range p.Added {
		r.TotalCartAdds++
		r.pushRecent(ref)
		r.pushMentioned(ref)
		r.bumpCategory(ref.Category)
	}
	for _, ref := range p.Mentioned {
		r.pushMentioned(ref)
	}

	if p.ActiveFilters != nil {
		r.Context.ActiveFilters = p.ActiveFilters.Clone()
	}
	if p.CurrentCategory != nil {
		r.Context.CurrentCategory = *p.CurrentCategory
	}
	if p.LastIntent != "" {
		r.Context.LastIntent = p.LastIntent
	}
	r.Context.LastUpdated = now
}

// pushRecent moves ref to the front, de-duplicated, capped at MaxRecentProducts.
func (r *Record) pushRecent(ref pkg.ProductRef) {
	out := make([]pkg.ProductRef, 0, MaxRecentProducts)
	out = append(out, ref)
	for _, existing := range r.RecentProducts {
		if existing.ID == ref.ID {
			continue
		}
		out = append(out, existing)
		if len(out) == MaxRecentProducts {
			break
		}
	}
	r.RecentProducts = out
}

// pushMentioned appends ref in insertion order, de-duplicated, keeping the
// last MaxMentionedProducts.
func (r *Record) pushMentioned(ref pkg.ProductRef) {
	out := make([]pkg.ProductRef, 0, len(r.MentionedProducts)+1)
	for _, existing := range r.MentionedProducts {
		if existing.ID != ref.ID {
			out = append(out, existing)
		}
	}
	out = append(out, ref)
	if n := len(out); n > MaxMentionedProducts {
		out = out[n-MaxMentionedProducts:]
	}
	r.MentionedProducts = out
}

func (r *Record) bumpCategory(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	found := false
	for i := range r.FavoriteCategories {
		if r.FavoriteCategories[i].Name == name {
			r.FavoriteCategories[i].Count++
			found = true
			break
		}
	}
	if !found {
		r.FavoriteCategories = append(r.FavoriteCategories, pkg.CategoryCount{Name: name, Count: 1})
	}
	sort.SliceStable(r.FavoriteCategories, func(i, j int) bool {
		return r.FavoriteCategories[i].Count > r.FavoriteCategories[j].Count
	})
}

// TopCategory returns the most interacted-with category.
func (r *Record) TopCategory() (string, bool) {
	if len(r.FavoriteCategories) == 0 {
		return "", false
	}
	return r.FavoriteCategories[0].Name, true
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.CartMirror = append([]pkg.CartLine{}, r.CartMirror...)
	out.FavoriteCategories = append([]pkg.CategoryCount{}, r.FavoriteCategories...)
	out.RecentProducts = append([]pkg.ProductRef{}, r.RecentProducts...)
	out.MentionedProducts = append([]pkg.ProductRef{}, r.MentionedProducts...)
	out.ChatHistory = append([]pkg.ChatEntry{}, r.ChatHistory...)
	out.Context.ActiveFilters = r.Context.ActiveFilters.Clone()
	return &out
}

// normalize repairs a decoded record so that a blank or partial document
// behaves like a default record.
func normalize(r *Record, userID string, now time.Time) *Record {
	if r == nil || r.UserID == "" {
		fresh := NewRecord(userID, now)
		if r != nil {
			fresh.UserName = r.UserName
		}
		return fresh
	}
	if r.CartMirror == nil {
		r.CartMirror = []pkg.CartLine{}
	}
	if r.FavoriteCategories == nil {
		r.FavoriteCategories = []pkg.CategoryCount{}
	}
	if r.RecentProducts == nil {
		r.RecentProducts = []pkg.ProductRef{}
	}
	if r.MentionedProducts == nil {
		r.MentionedProducts = []pkg.ProductRef{}
	}
	if r.ChatHistory == nil {
		r.ChatHistory = []pkg.ChatEntry{}
	}
	return r
}
