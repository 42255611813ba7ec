package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/openwagemap/openwagemap/internal/locations"
	"github.com/openwagemap/openwagemap/internal/orgs"
	"github.com/openwagemap/openwagemap/internal/stats"
	"github.com/openwagemap/openwagemap/internal/taxonomy"
	"github.com/openwagemap/openwagemap/internal/users"
	"github.com/openwagemap/openwagemap/internal/wages"
	"go.uber.org/zap"
)

const userIDContextKey = "wagemap_user_id"

var (
	errMissingWageService     = errors.New("wage service dependency required")
	errMissingOrgService      = errors.New("organization service dependency required")
	errMissingLocationService = errors.New("location service dependency required")
	errMissingTokenManager    = errors.New("token manager dependency required")
	errMissingUserService     = errors.New("user service dependency required")
)

// TokenManager issues and validates submitter bearer tokens.
type TokenManager interface {
	IssueToken(ctx context.Context, userID string) (string, int64, error)
	ValidateToken(token string) (string, error)
}

// Dependencies wires the services the HTTP layer exposes.
type Dependencies struct {
	Wages     *wages.Service
	Orgs      *orgs.Service
	Locations *locations.Service
	Taxonomy  *taxonomy.Service
	Stats     *stats.Service
	Users     *users.Service
	Tokens    TokenManager
	Logger    *zap.Logger
}

// NewHTTPHandler assembles the gin router over the provided services.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Wages == nil {
		return nil, errMissingWageService
	}
	if deps.Orgs == nil {
		return nil, errMissingOrgService
	}
	if deps.Locations == nil {
		return nil, errMissingLocationService
	}
	if deps.Tokens == nil {
		return nil, errMissingTokenManager
	}
	if deps.Users == nil {
		return nil, errMissingUserService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		wages:     deps.Wages,
		orgs:      deps.Orgs,
		locations: deps.Locations,
		taxonomy:  deps.Taxonomy,
		stats:     deps.Stats,
		users:     deps.Users,
		tokens:    deps.Tokens,
		logger:    logger,
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/auth/register", handler.handleRegister)

	router.POST("/wage-reports", handler.optionalAuth, handler.handleSubmitWageReport)
	router.GET("/wage-reports/:id", handler.handleGetWageReport)

	router.GET("/organizations", handler.handleSearchOrganizations)
	router.GET("/organizations/:id", handler.handleGetOrganization)
	router.GET("/organizations/:id/locations", handler.handleOrganizationLocations)
	router.GET("/organizations/:id/statistics", handler.handleOrganizationStatistics)

	router.GET("/locations", handler.handleListLocations)
	router.GET("/locations/:id", handler.handleGetLocation)
	router.GET("/locations/:id/wage-reports", handler.handleLocationWageReports)
	router.GET("/locations/:id/statistics", handler.handleLocationStatistics)

	router.GET("/industries", handler.handleIndustryTree)
	router.GET("/industries/:id/positions", handler.handleIndustryPositions)

	moderation := router.Group("/")
	moderation.Use(handler.authorizeRequest)
	moderation.PATCH("/wage-reports/:id/status", handler.handleUpdateStatus)
	moderation.DELETE("/wage-reports/:id", handler.handleDeleteWageReport)
	moderation.POST("/wage-reports/:id/restore", handler.handleRestoreWageReport)

	return router, nil
}

type httpHandler struct {
	wages     *wages.Service
	orgs      *orgs.Service
	locations *locations.Service
	taxonomy  *taxonomy.Service
	stats     *stats.Service
	users     *users.Service
	tokens    TokenManager
	logger    *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	userID, err := h.bearerSubject(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, userID)
	c.Next()
}

// optionalAuth attributes the request to a user when a valid bearer token is
// present. A missing header stays anonymous; a malformed or invalid token is
// still rejected rather than silently downgraded.
func (h *httpHandler) optionalAuth(c *gin.Context) {
	if strings.TrimSpace(c.GetHeader("Authorization")) == "" {
		c.Next()
		return
	}
	userID, err := h.bearerSubject(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(userIDContextKey, userID)
	c.Next()
}

func (h *httpHandler) bearerSubject(c *gin.Context) (string, error) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", errors.New("authorization header missing or invalid")
	}
	return h.tokens.ValidateToken(strings.TrimSpace(strings.TrimPrefix(header, prefix)))
}

type registerRequestPayload struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type tokenResponsePayload struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request registerRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), users.NewAccountID(), request.Email, request.DisplayName)
	if err != nil {
		h.logger.Error("user registration failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration_failed"})
		return
	}

	token, expiresIn, err := h.tokens.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	c.JSON(http.StatusCreated, tokenResponsePayload{
		UserID:      user.ID,
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
	})
}

type wageReportRequestPayload struct {
	OrganizationID     *string `json:"organization_id"`
	LocationID         string  `json:"location_id"`
	JobTitle           string  `json:"job_title"`
	PositionCategoryID *string `json:"position_category_id"`
	AmountCents        int64   `json:"amount_cents"`
	Currency           string  `json:"currency"`
	WagePeriod         string  `json:"wage_period"`
	HoursPerWeek       int     `json:"hours_per_week"`
	ShiftHours         int     `json:"shift_hours"`
}

type wageReportResponsePayload struct {
	ID                    string  `json:"id"`
	OrganizationID        *string `json:"organization_id"`
	LocationID            string  `json:"location_id"`
	JobTitle              string  `json:"job_title"`
	AmountCents           int64   `json:"amount_cents"`
	Currency              string  `json:"currency"`
	WagePeriod            string  `json:"wage_period"`
	HoursPerWeek          int     `json:"hours_per_week"`
	NormalizedHourlyCents int64   `json:"normalized_hourly_cents"`
	SanityScore           int     `json:"sanity_score"`
	Status                string  `json:"status"`
	CreatedAtSeconds      int64   `json:"created_at_s"`
}

func toWageReportPayload(report *wages.WageReport) wageReportResponsePayload {
	return wageReportResponsePayload{
		ID:                    report.ID,
		OrganizationID:        report.OrganizationID,
		LocationID:            report.LocationID,
		JobTitle:              report.JobTitle,
		AmountCents:           report.AmountCents,
		Currency:              report.Currency,
		WagePeriod:            string(report.Period),
		HoursPerWeek:          report.HoursPerWeek,
		NormalizedHourlyCents: report.NormalizedHourlyCents,
		SanityScore:           report.SanityScore,
		Status:                string(report.Status),
		CreatedAtSeconds:      report.CreatedAt,
	}
}

func (h *httpHandler) handleSubmitWageReport(c *gin.Context) {
	var request wageReportRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	period, err := wages.NewPeriod(request.WagePeriod)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_wage_period"})
		return
	}

	createRequest := wages.CreateRequest{
		OrganizationID:     request.OrganizationID,
		LocationID:         request.LocationID,
		JobTitle:           request.JobTitle,
		PositionCategoryID: request.PositionCategoryID,
		AmountCents:        request.AmountCents,
		Currency:           request.Currency,
		Period:             period,
		HoursPerWeek:       request.HoursPerWeek,
		ShiftHours:         request.ShiftHours,
	}
	if userID := c.GetString(userIDContextKey); userID != "" {
		createRequest.UserID = &userID
	}

	report, err := h.wages.Create(c.Request.Context(), createRequest)
	if err != nil {
		h.renderWageError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toWageReportPayload(report))
}

func (h *httpHandler) handleGetWageReport(c *gin.Context) {
	report, err := h.wages.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderWageError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWageReportPayload(report))
}

type statusUpdatePayload struct {
	Status string `json:"status"`
}

func (h *httpHandler) handleUpdateStatus(c *gin.Context) {
	var request statusUpdatePayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	status, err := wages.NewStatus(request.Status)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_status"})
		return
	}

	report, err := h.wages.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		h.renderWageError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWageReportPayload(report))
}

func (h *httpHandler) handleDeleteWageReport(c *gin.Context) {
	if err := h.wages.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.renderWageError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleRestoreWageReport(c *gin.Context) {
	report, err := h.wages.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderWageError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWageReportPayload(report))
}

func (h *httpHandler) handleSearchOrganizations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	results, err := h.orgs.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.logger.Error("organization search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"organizations": results})
}

func (h *httpHandler) handleGetOrganization(c *gin.Context) {
	org, err := h.orgs.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, orgs.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.logger.Error("organization lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, org)
}

func (h *httpHandler) handleOrganizationLocations(c *gin.Context) {
	results, err := h.locations.ListByOrganization(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("organization locations lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": results})
}

func (h *httpHandler) handleOrganizationStatistics(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "statistics_disabled"})
		return
	}
	summary, err := h.stats.OrganizationSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("organization statistics failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "statistics_failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleListLocations is proximity search: lat/lng are required and the
// response is ordered by distance.
func (h *httpHandler) handleListLocations(c *gin.Context) {
	latRaw, lngRaw := c.Query("lat"), c.Query("lng")
	if latRaw == "" || lngRaw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat_and_lng_required"})
		return
	}
	lat, latErr := strconv.ParseFloat(latRaw, 64)
	lng, lngErr := strconv.ParseFloat(lngRaw, 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_coordinates"})
		return
	}
	radiusKM, _ := strconv.ParseFloat(c.Query("radius_km"), 64)
	limit, _ := strconv.Atoi(c.Query("limit"))

	results, err := h.locations.Nearby(c.Request.Context(), lat, lng, radiusKM, limit)
	if errors.Is(err, locations.ErrInvalidCoordinates) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_coordinates"})
		return
	}
	if err != nil {
		h.logger.Error("nearby search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search_failed"})
		return
	}

	payload := make([]gin.H, 0, len(results))
	for _, result := range results {
		payload = append(payload, gin.H{
			"location":    result.Location,
			"distance_km": result.DistanceKM,
		})
	}
	c.JSON(http.StatusOK, gin.H{"locations": payload})
}

func (h *httpHandler) handleGetLocation(c *gin.Context) {
	location, err := h.locations.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, locations.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	if err != nil {
		h.logger.Error("location lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, location)
}

func (h *httpHandler) handleLocationWageReports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	reports, err := h.wages.ListByLocation(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.renderWageError(c, err)
		return
	}
	payload := make([]wageReportResponsePayload, 0, len(reports))
	for i := range reports {
		payload = append(payload, toWageReportPayload(&reports[i]))
	}
	c.JSON(http.StatusOK, gin.H{"wage_reports": payload})
}

func (h *httpHandler) handleLocationStatistics(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "statistics_disabled"})
		return
	}
	summary, err := h.stats.LocationSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("location statistics failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "statistics_failed"})
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *httpHandler) handleIndustryTree(c *gin.Context) {
	if h.taxonomy == nil {
		c.JSON(http.StatusOK, gin.H{"industries": []any{}})
		return
	}
	tree, err := h.taxonomy.Tree(c.Request.Context())
	if err != nil {
		h.logger.Error("industry tree failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"industries": toIndustryPayload(tree)})
}

func (h *httpHandler) handleIndustryPositions(c *gin.Context) {
	if h.taxonomy == nil {
		c.JSON(http.StatusOK, gin.H{"positions": []any{}})
		return
	}
	positions, err := h.taxonomy.Positions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("industry positions failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

type industryPayload struct {
	ID       string            `json:"id"`
	Slug     string            `json:"slug"`
	Name     string            `json:"name"`
	Children []industryPayload `json:"children"`
}

func toIndustryPayload(nodes []*taxonomy.IndustryNode) []industryPayload {
	payload := make([]industryPayload, 0, len(nodes))
	for _, node := range nodes {
		payload = append(payload, industryPayload{
			ID:       node.Industry.ID,
			Slug:     node.Industry.Slug,
			Name:     node.Industry.Name,
			Children: toIndustryPayload(node.Children),
		})
	}
	return payload
}

// renderWageError maps wage service failures onto HTTP statuses: validation
// failures are 422, missing records 404, everything else 500.
func (h *httpHandler) renderWageError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wages.ErrInvalidPeriod),
		errors.Is(err, wages.ErrOutOfBounds),
		errors.Is(err, wages.ErrInvalidAmount),
		errors.Is(err, wages.ErrInvalidStatus),
		errors.Is(err, wages.ErrInvalidLocationID),
		errors.Is(err, wages.ErrReportNotDeleted):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "detail": err.Error()})
	case errors.Is(err, wages.ErrReportNotFound), errors.Is(err, locations.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		h.logger.Error("wage operation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
