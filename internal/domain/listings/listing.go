package listings

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"campusmarket/internal/domain/shared/events"
)

var (
	ErrIDRequired          = errors.New("listings: id is required")
	ErrSellerRequired      = errors.New("listings: seller is required")
	ErrInstitutionRequired = errors.New("listings: institution is required")
	ErrTitleRequired       = errors.New("listings: title is required")
	ErrTitleTooLong        = errors.New("listings: title must be at most 120 characters")
	ErrDescriptionTooLong  = errors.New("listings: description must be at most 5000 characters")
	ErrPriceNegative       = errors.New("listings: price must be non-negative")
	ErrInvalidCondition    = errors.New("listings: unknown item condition")
	ErrInvalidState        = errors.New("listings: invalid state transition")
	ErrPhotoURL            = errors.New("listings: photo url is required")
	ErrTooManyPhotos       = errors.New("listings: at most 8 photos per listing")
	ErrNotFound            = errors.New("listings: not found")
)

const (
	maxTitleLength       = 120
	maxDescriptionLength = 5000
	maxPhotos            = 8
)

type ListingID string
type SellerID string

type ListingState string

const (
	ListingActive  ListingState = "ACTIVE"
	ListingSold    ListingState = "SOLD"
	ListingRemoved ListingState = "REMOVED"
)

type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
)

// ParseCondition normalizes a condition; empty input defaults to good.
func ParseCondition(raw string) (Condition, error) {
	value := Condition(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case "":
		return ConditionGood, nil
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair:
		return value, nil
	default:
		return "", ErrInvalidCondition
	}
}

type Listing struct {
	ID          ListingID
	Seller      SellerID
	Institution string
	Title       string
	Description string
	PriceCents  int64
	Category    string
	Condition   Condition
	Photos      []string
	State       ListingState
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

type CreateListingParams struct {
	ID          ListingID
	Seller      SellerID
	Institution string
	Title       string
	Description string
	PriceCents  int64
	Category    string
	Condition   string
	Photos      []string
	Now         time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Seller)) == "" {
		return nil, ErrSellerRequired
	}
	institution := strings.ToLower(strings.TrimSpace(params.Institution))
	if institution == "" {
		return nil, ErrInstitutionRequired
	}
	details, err := normalizeDetails(params.Title, params.Description, params.PriceCents, params.Condition)
	if err != nil {
		return nil, err
	}
	photos, err := normalizePhotos(params.Photos)
	if err != nil {
		return nil, err
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	listing := &Listing{
		ID:          params.ID,
		Seller:      params.Seller,
		Institution: institution,
		Title:       details.title,
		Description: details.description,
		PriceCents:  params.PriceCents,
		Category:    normalizeCategory(params.Category),
		Condition:   details.condition,
		Photos:      photos,
		State:       ListingActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	listing.Record(ListingCreatedEvent{
		ListingID:   listing.ID,
		SellerID:    listing.Seller,
		Institution: listing.Institution,
		Title:       listing.Title,
		PriceCents:  listing.PriceCents,
		At:          now,
	})
	return listing, nil
}

type UpdateListingParams struct {
	Title       string
	Description string
	PriceCents  int64
	Category    string
	Condition   string
	Now         time.Time
}

// Update replaces the editable attributes. Only active listings can be edited.
func (l *Listing) Update(params UpdateListingParams) error {
	if l.State != ListingActive {
		return ErrInvalidState
	}
	details, err := normalizeDetails(params.Title, params.Description, params.PriceCents, params.Condition)
	if err != nil {
		return err
	}
	l.Title = details.title
	l.Description = details.description
	l.PriceCents = params.PriceCents
	l.Category = normalizeCategory(params.Category)
	l.Condition = details.condition
	l.touch(params.Now)
	return nil
}

func (l *Listing) MarkSold(now time.Time) error {
	if l.State != ListingActive {
		return ErrInvalidState
	}
	l.State = ListingSold
	l.touch(now)
	l.Record(ListingSoldEvent{ListingID: l.ID, SellerID: l.Seller, At: l.UpdatedAt})
	return nil
}

// Remove hides the listing from the catalog. Removing twice is a no-op.
func (l *Listing) Remove(by string, reason string, now time.Time) error {
	if l.State == ListingRemoved {
		return nil
	}
	l.State = ListingRemoved
	l.touch(now)
	l.Record(ListingRemovedEvent{
		ListingID: l.ID,
		RemovedBy: strings.TrimSpace(by),
		Reason:    strings.TrimSpace(reason),
		At:        l.UpdatedAt,
	})
	return nil
}

func (l *Listing) AddPhoto(url string, now time.Time) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrPhotoURL
	}
	if l.State != ListingActive {
		return ErrInvalidState
	}
	if len(l.Photos) >= maxPhotos {
		return ErrTooManyPhotos
	}
	l.Photos = append(l.Photos, url)
	l.touch(now)
	return nil
}

func (l *Listing) Active() bool {
	return l.State == ListingActive
}

func (l *Listing) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	l.UpdatedAt = now.UTC()
}

type listingDetails struct {
	title       string
	description string
	condition   Condition
}

func normalizeDetails(title, description string, priceCents int64, condition string) (listingDetails, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return listingDetails{}, ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return listingDetails{}, ErrTitleTooLong
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return listingDetails{}, ErrDescriptionTooLong
	}
	if priceCents < 0 {
		return listingDetails{}, ErrPriceNegative
	}
	parsed, err := ParseCondition(condition)
	if err != nil {
		return listingDetails{}, err
	}
	return listingDetails{title: title, description: description, condition: parsed}, nil
}

func normalizePhotos(photos []string) ([]string, error) {
	out := make([]string, 0, len(photos))
	for _, photo := range photos {
		photo = strings.TrimSpace(photo)
		if photo == "" {
			continue
		}
		out = append(out, photo)
	}
	if len(out) > maxPhotos {
		return nil, ErrTooManyPhotos
	}
	return out, nil
}

func normalizeCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return "other"
	}
	return category
}
