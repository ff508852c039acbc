package handler

import (
	"net/http"

	"marketplace-rest-api/internal/model"
	"marketplace-rest-api/internal/repository"
	"marketplace-rest-api/internal/service"
	"marketplace-rest-api/pkg/apierror"
	"marketplace-rest-api/pkg/response"

	"go.uber.org/zap"
)

// SocialHandler handles follows and user reviews.
type SocialHandler struct {
	social  repository.SocialRepository
	reviews *service.ReviewService
	logger  *zap.Logger
}

// NewSocialHandler creates a new social handler.
func NewSocialHandler(social repository.SocialRepository, reviews *service.ReviewService, logger *zap.Logger) *SocialHandler {
	return &SocialHandler{
		social:  social,
		reviews: reviews,
		logger:  logger,
	}
}

// Follow handles POST /api/users/{id}/follow
func (h *SocialHandler) Follow(w http.ResponseWriter, r *http.Request) {
	h.toggleFollow(w, r, true)
}

// Unfollow handles DELETE /api/users/{id}/follow
func (h *SocialHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	h.toggleFollow(w, r, false)
}

func (h *SocialHandler) toggleFollow(w http.ResponseWriter, r *http.Request, follow bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	targetID, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}
	if targetID == user.ID {
		response.Error(w, apierror.BadRequest("you cannot follow yourself"))
		return
	}

	var err error
	if follow {
		err = h.social.Follow(r.Context(), user.ID, targetID)
	} else {
		err = h.social.Unfollow(r.Context(), user.ID, targetID)
	}
	if err != nil {
		repoError(w, r, h.logger, "user not found", err)
		return
	}

	response.OK(w, map[string]any{
		"follow":    model.Follow{FollowerID: user.ID, FollowingID: targetID},
		"following": follow,
	})
}

// FollowerCount handles GET /api/users/{id}/followers/count
func (h *SocialHandler) FollowerCount(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	n, err := h.social.FollowerCount(r.Context(), userID)
	if err != nil {
		serverError(w, r, h.logger, "failed to count followers", err)
		return
	}
	response.OK(w, map[string]int64{"count": n})
}

// Reviews handles GET /api/users/{id}/reviews
func (h *SocialHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	reviews, err := h.reviews.List(r.Context(), userID)
	if err != nil {
		serverError(w, r, h.logger, "failed to list reviews", err)
		return
	}
	response.OK(w, reviews)
}

// ReviewCount handles GET /api/users/{id}/reviews/count
func (h *SocialHandler) ReviewCount(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := pathUUID(r, "id")
	if apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	n, err := h.reviews.Count(r.Context(), userID)
	if err != nil {
		serverError(w, r, h.logger, "failed to count reviews", err)
		return
	}
	response.OK(w, map[string]int64{"count": n})
}
