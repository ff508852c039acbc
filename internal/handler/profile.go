package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"marketplace-rest-api/internal/repository"
	"marketplace-rest-api/internal/supabase"
	"marketplace-rest-api/pkg/apierror"
	"marketplace-rest-api/pkg/response"

	"go.uber.org/zap"
)

// ObjectRemover deletes stored objects.
type ObjectRemover interface {
	Remove(ctx context.Context, bucket string, paths []string) error
}

// ProfileHandler handles the caller's profile and uploaded images.
type ProfileHandler struct {
	profiles      repository.ProfileRepository
	storage       ObjectRemover
	avatarDomains []string
	imageBuckets  []string
	logger        *zap.Logger
}

// NewProfileHandler creates a new profile handler. avatarDomains are
// lowercase hostnames; subdomains of each are accepted too. Deletes are
// limited to imageBuckets when it is non-empty.
func NewProfileHandler(
	profiles repository.ProfileRepository,
	storage ObjectRemover,
	avatarDomains []string,
	imageBuckets []string,
	logger *zap.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		profiles:      profiles,
		storage:       storage,
		avatarDomains: avatarDomains,
		imageBuckets:  imageBuckets,
		logger:        logger,
	}
}

// Me handles GET /api/profile
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	profile, err := h.profiles.GetByID(r.Context(), user.ID)
	if err != nil {
		repoError(w, r, h.logger, "profile not found", err)
		return
	}
	response.OK(w, profile)
}

// UpdateAvatarRequest is the body of PATCH /api/profile/avatar.
type UpdateAvatarRequest struct {
	AvatarURL string `json:"avatar_url"`
}

// UpdateAvatar handles PATCH /api/profile/avatar
func (h *ProfileHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req UpdateAvatarRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	avatarURL := strings.TrimSpace(req.AvatarURL)
	if !allowedAvatarURL(avatarURL, h.avatarDomains) {
		response.Error(w, apierror.BadRequest("avatar_url must be an https URL on an allowed domain"))
		return
	}

	profile, err := h.profiles.UpdateAvatar(r.Context(), user.ID, avatarURL)
	if err != nil {
		repoError(w, r, h.logger, "profile not found", err)
		return
	}
	response.OK(w, profile)
}

func allowedAvatarURL(raw string, domains []string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.User != nil {
		return false
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "" {
		return false
	}
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// DeleteImageRequest is the body of DELETE /api/storage/images.
type DeleteImageRequest struct {
	URL string `json:"url"`
}

// DeleteImage handles DELETE /api/storage/images
func (h *ProfileHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req DeleteImageRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	bucket, path, err := supabase.ParseObjectURL(strings.TrimSpace(req.URL))
	if err != nil {
		response.Error(w, apierror.BadRequest("url is not a storage object URL"))
		return
	}
	if len(h.imageBuckets) > 0 && !slices.Contains(h.imageBuckets, bucket) {
		response.Error(w, apierror.BadRequest("url is not in an image bucket"))
		return
	}
	if !strings.HasPrefix(path, user.ID+"/") {
		response.Error(w, apierror.Forbidden("you can only delete your own images"))
		return
	}

	if err := h.storage.Remove(r.Context(), bucket, []string{path}); err != nil {
		var sbErr *supabase.Error
		if errors.As(err, &sbErr) && sbErr.StatusCode == http.StatusNotFound {
			response.Error(w, apierror.NotFound("image not found"))
			return
		}
		serverError(w, r, h.logger, "failed to delete image", err)
		return
	}
	response.OK(w, map[string]any{"deleted": true, "bucket": bucket, "path": path})
}
