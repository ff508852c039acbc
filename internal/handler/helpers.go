package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"marketplace-rest-api/internal/middleware"
	"marketplace-rest-api/internal/repository"
	"marketplace-rest-api/pkg/apierror"
	"marketplace-rest-api/pkg/response"
	"marketplace-rest-api/pkg/uid"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) *apierror.Error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apierror.BadRequest("request body too large")
		}
		return apierror.BadRequest("invalid request body")
	}
	return nil
}

// pathUUID returns the named URL parameter in canonical form, or a 400.
func pathUUID(r *http.Request, name string) (string, *apierror.Error) {
	id := uid.Normalize(chi.URLParam(r, name))
	if id == "" {
		return "", apierror.BadRequest("invalid " + name)
	}
	return id, nil
}

// queryInt parses an optional positive integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, *apierror.Error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apierror.BadRequest(name + " must be a positive integer")
	}
	return n, nil
}

// maxPage bounds page so (page-1)*limit cannot overflow an offset.
const maxPage = 10000

// pagination parses page and limit, clamping limit to max.
func pagination(r *http.Request, defLimit, maxLimit int) (page, limit int, apiErr *apierror.Error) {
	if page, apiErr = queryInt(r, "page", 1); apiErr != nil {
		return 0, 0, apiErr
	}
	if page > maxPage {
		return 0, 0, apierror.BadRequest("page must be at most " + strconv.Itoa(maxPage))
	}
	if limit, apiErr = queryInt(r, "limit", defLimit); apiErr != nil {
		return 0, 0, apiErr
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, nil
}

// currentUser returns the session user. Routes using it sit behind RequireUser.
func currentUser(w http.ResponseWriter, r *http.Request) (*middleware.User, bool) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		response.Error(w, apierror.Unauthorized("Authentication required"))
		return nil, false
	}
	return user, true
}

// serverError logs err with the request id and writes a generic 500.
func serverError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, msg string, err error) {
	logger.Error(msg,
		zap.String("request_id", requestID(r)),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	response.Error(w, apierror.InternalError("internal server error"))
}

// repoError maps ErrNotFound to 404 and anything else to a logged 500.
func repoError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, notFound string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		response.Error(w, apierror.NotFound(notFound))
		return
	}
	logger.Error("repository call failed",
		zap.String("request_id", requestID(r)),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	response.Error(w, apierror.DatabaseError(""))
}

func requestID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}
