package listings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	"campusmarket/internal/app/handlers/support"
	"campusmarket/internal/app/policies"
)

const uploadListingPhotoKey = "listings.photos.upload"

var ErrPhotoStorageUnavailable = errors.New("listings: photo storage unavailable")

type UploadListingPhotoCommand struct {
	SellerID    string `validate:"required"`
	ListingID   string `validate:"required"`
	ObjectKey   string `validate:"required"`
	ContentType string `validate:"required"`
	Reader      io.Reader
}

func (c UploadListingPhotoCommand) Key() string { return uploadListingPhotoKey }

type UploadListingPhotoHandler struct {
	Storage policies.PhotoStorage
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *UploadListingPhotoHandler) Handle(ctx context.Context, cmd UploadListingPhotoCommand) (*dto.PhotoUploadResult, error) {
	if h.Storage == nil {
		return nil, ErrPhotoStorageUnavailable
	}
	if cmd.Reader == nil {
		return nil, errors.New("listings: photo reader is required")
	}
	unit, listing, err := ownedListing(ctx, cmd.SellerID, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if !listing.Active() {
		return nil, fmt.Errorf("listings: cannot add photos to a %s listing", listing.State)
	}

	publicURL, err := h.Storage.Upload(ctx, cmd.ObjectKey, cmd.Reader, cmd.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	if err := listing.AddPhoto(publicURL, support.Now(h.Now)); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing photo added", "listing_id", listing.ID, "object_key", cmd.ObjectKey)
	}
	return &dto.PhotoUploadResult{URL: publicURL, Listing: dto.MapListing(listing)}, nil
}

var _ commands.Handler[UploadListingPhotoCommand, *dto.PhotoUploadResult] = (*UploadListingPhotoHandler)(nil)
