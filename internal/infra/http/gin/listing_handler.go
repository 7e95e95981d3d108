package ginserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	listingapp "campusmarket/internal/app/handlers/listings"
	"campusmarket/internal/app/queries"
)

const maxListingPhotoSizeBytes int64 = 10 * 1024 * 1024

type ListingHTTP interface {
	Catalog(c *gin.Context)
	Get(c *gin.Context)
}

type SellHTTP interface {
	Create(c *gin.Context)
	Update(c *gin.Context)
	MarkSold(c *gin.Context)
	Remove(c *gin.Context)
	UploadPhoto(c *gin.Context)
}

type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type listingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"price_cents"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Photos      []string `json:"photos"`
}

func (r listingRequest) payload() listingapp.ListingPayload {
	return listingapp.ListingPayload{
		Title:       r.Title,
		Description: r.Description,
		PriceCents:  r.PriceCents,
		Category:    r.Category,
		Condition:   r.Condition,
	}
}

// Catalog lists active listings of the caller's institution only.
func (h ListingHandler) Catalog(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries bus")
		return
	}
	query := listingapp.SearchCatalogQuery{
		Institution:   principal.Institution.Domain,
		Query:         c.Query("q"),
		Category:      c.Query("category"),
		PriceMinCents: parseInt64(c.Query("price_min")),
		PriceMaxCents: parseInt64(c.Query("price_max")),
		Sort:          strings.TrimSpace(c.Query("sort")),
		Limit:         parseIntWithDefault(c.Query("limit"), 20),
		Offset:        parseInt(c.Query("offset")),
	}
	result, err := queries.Ask[listingapp.SearchCatalogQuery, dto.ListingCatalog](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries bus")
		return
	}
	query := listingapp.GetListingQuery{
		ListingID:   c.Param("id"),
		ViewerID:    string(principal.UserID),
		Institution: principal.Institution.Domain,
	}
	result, err := queries.Ask[listingapp.GetListingQuery, dto.ListingDetail](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Create(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands bus")
		return
	}
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cmd := listingapp.CreateListingCommand{
		SellerID:    string(principal.UserID),
		Institution: principal.Institution.Domain,
		Payload:     req.payload(),
		Photos:      req.Photos,
		RequestKey:  strings.TrimSpace(c.GetHeader("Idempotency-Key")),
	}
	result, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/v1/listings/%s", result.ID))
	c.JSON(http.StatusCreated, result)
}

func (h ListingHandler) Update(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands bus")
		return
	}
	var req listingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cmd := listingapp.UpdateListingCommand{
		SellerID:  string(principal.UserID),
		ListingID: c.Param("id"),
		Payload:   req.payload(),
	}
	result, err := commands.Dispatch[listingapp.UpdateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) MarkSold(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands bus")
		return
	}
	cmd := listingapp.MarkSoldCommand{SellerID: string(principal.UserID), ListingID: c.Param("id")}
	result, err := commands.Dispatch[listingapp.MarkSoldCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Remove(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands bus")
		return
	}
	cmd := listingapp.RemoveListingCommand{
		CallerID:    string(principal.UserID),
		CallerEmail: principal.Email,
		ListingID:   c.Param("id"),
		Reason:      c.Query("reason"),
	}
	result, err := commands.Dispatch[listingapp.RemoveListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) UploadPhoto(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands bus")
		return
	}
	listingID := strings.TrimSpace(c.Param("id"))
	if listingID == "" {
		badRequest(c, "listing id is required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if fileHeader.Size <= 0 {
		badRequest(c, "file is empty")
		return
	}
	if fileHeader.Size > maxListingPhotoSizeBytes {
		badRequest(c, fmt.Sprintf("file too large (max %d MB)", maxListingPhotoSizeBytes/1024/1024))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		badRequest(c, "cannot open file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxListingPhotoSizeBytes+1024))
	if err != nil {
		respondError(c, h.Logger, fmt.Errorf("read upload: %w", err))
		return
	}
	if len(data) == 0 {
		badRequest(c, "file is empty")
		return
	}
	if int64(len(data)) > maxListingPhotoSizeBytes {
		badRequest(c, fmt.Sprintf("file too large (max %d MB)", maxListingPhotoSizeBytes/1024/1024))
		return
	}
	contentType := http.DetectContentType(data)
	if !isAllowedImageType(contentType) {
		badRequest(c, "unsupported content type: "+contentType)
		return
	}

	cmd := listingapp.UploadListingPhotoCommand{
		SellerID:    string(principal.UserID),
		ListingID:   listingID,
		ObjectKey:   buildPhotoObjectKey(listingID, fileHeader.Filename, contentType),
		ContentType: contentType,
		Reader:      bytes.NewReader(data),
	}
	result, err := commands.Dispatch[listingapp.UploadListingPhotoCommand, *dto.PhotoUploadResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		if errors.Is(err, listingapp.ErrPhotoStorageUnavailable) && h.Logger != nil {
			h.Logger.Warn("photo upload without storage", "listing_id", listingID)
		}
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func isAllowedImageType(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp":
		return true
	default:
		return false
	}
}

func extensionForContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

func buildPhotoObjectKey(listingID, filename, contentType string) string {
	ext := extensionForContentType(contentType)
	if ext == "" {
		ext = strings.ToLower(path.Ext(filename))
	}
	if ext == "" {
		ext = ".img"
	}
	return fmt.Sprintf("listings/%s/%s%s", sanitizePathToken(listingID), uuid.NewString(), ext)
}

func sanitizePathToken(value string) string {
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	result := strings.Trim(b.String(), "-")
	if result == "" {
		return "listing"
	}
	return result
}

func parseInt(raw string) int {
	value, _ := strconv.Atoi(strings.TrimSpace(raw))
	if value < 0 {
		return 0
	}
	return value
}

func parseInt64(raw string) int64 {
	value, _ := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if value < 0 {
		return 0
	}
	return value
}

func parseIntWithDefault(raw string, fallback int) int {
	value := parseInt(raw)
	if value == 0 {
		return fallback
	}
	return value
}

var (
	_ ListingHTTP = (*ListingHandler)(nil)
	_ SellHTTP    = (*ListingHandler)(nil)
)
