package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"eroute/pkg/routing"
)

const maxBatchQueries = 1000

// Router is the query surface the handlers need.
type Router interface {
	Route(ctx context.Context, sourceID, targetID int64) (*routing.RouteResult, error)
	RouteCoords(ctx context.Context, from, to orb.Point) (*routing.RouteResult, error)
	ReachableCoords(ctx context.Context, from orb.Point, capacity float32) ([]routing.Reach, error)
	RouteBatch(ctx context.Context, queries []routing.RouteQuery, workers int) ([]routing.BatchResult, error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	router       Router
	stats        StatsResponse
	batchWorkers int
}

// NewHandlers creates handlers with the given router. batchWorkers bounds
// the goroutines of one batch request.
func NewHandlers(router Router, stats StatsResponse, batchWorkers int) *Handlers {
	return &Handlers{
		router:       router,
		stats:        stats,
		batchWorkers: batchWorkers,
	}
}

// HandleRoute handles GET /api/route.
func (h *Handlers) HandleRoute(w http.ResponseWriter, r *http.Request) {
	from, field, err := queryPoint(r, "source-lon", "source-lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", field)
		return
	}
	to, field, err := queryPoint(r, "target-lon", "target-lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", field)
		return
	}

	res, err := h.router.RouteCoords(r.Context(), from, to)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routeFeature(res))
}

// HandleRouteByIDs handles GET /api/route-using-ids.
func (h *Handlers) HandleRouteByIDs(w http.ResponseWriter, r *http.Request) {
	src, err := strconv.ParseInt(r.URL.Query().Get("source-id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", "source-id")
		return
	}
	dst, err := strconv.ParseInt(r.URL.Query().Get("target-id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", "target-id")
		return
	}

	res, err := h.router.Route(r.Context(), src, dst)
	if err != nil {
		writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, routeFeature(res))
}

// HandleReachability handles GET /api/reachability.
func (h *Handlers) HandleReachability(w http.ResponseWriter, r *http.Request) {
	from, field, err := queryPoint(r, "source-lon", "source-lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_parameters", field)
		return
	}
	capacity, err := queryFloat(r, "capacity")
	if err != nil || capacity < 0 || capacity > math.MaxFloat32 {
		writeError(w, http.StatusBadRequest, "invalid_parameters", "capacity")
		return
	}

	reach, err := h.router.ReachableCoords(r.Context(), from, float32(capacity))
	if err != nil {
		writeQueryError(w, err)
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, rc := range reach {
		f := geojson.NewFeature(rc.Point)
		f.Properties["id"] = rc.NodeID
		f.Properties["capacity_remaining"] = float64(rc.Remaining)
		fc.Append(f)
	}
	writeJSON(w, http.StatusOK, fc)
}

// HandleBatch handles POST /api/v1/route/batch.
func (h *Handlers) HandleBatch(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}
	if len(req.Queries) == 0 || len(req.Queries) > maxBatchQueries {
		writeError(w, http.StatusBadRequest, "invalid_parameters", "queries")
		return
	}

	queries := make([]routing.RouteQuery, len(req.Queries))
	for i, q := range req.Queries {
		queries[i] = routing.RouteQuery{SourceID: q.SourceID, TargetID: q.TargetID}
	}
	results, err := h.router.RouteBatch(r.Context(), queries, h.batchWorkers)
	if err != nil {
		writeQueryError(w, err)
		return
	}

	resp := BatchResponse{Results: make([]BatchResultJSON, len(results))}
	for i, br := range results {
		out := BatchResultJSON{SourceID: br.Query.SourceID, TargetID: br.Query.TargetID}
		switch {
		case errors.Is(br.Err, routing.ErrNotFound):
			out.Error = "not_found"
		case br.Err != nil:
			out.Error = "internal_error"
		default:
			out.TotalCost = finiteCost(br.Result.Cost)
			out.Reachable = br.Result.Reached
			out.Converged = br.Result.Converged
			out.NodeIDs = br.Result.NodeIDs
			out.Path = make([][2]float64, len(br.Result.Path))
			for j, p := range br.Result.Path {
				out.Path[j] = [2]float64{p.Lon(), p.Lat()}
			}
		}
		resp.Results[i] = out
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}

// routeFeature renders a route as a GeoJSON feature. A one-node route is a
// Point since a LineString needs two positions.
func routeFeature(res *routing.RouteResult) *geojson.Feature {
	var geom orb.Geometry = res.Path
	if len(res.Path) == 1 {
		geom = res.Path[0]
	}
	f := geojson.NewFeature(geom)
	f.Properties["total_cost"] = finiteCost(res.Cost)
	f.Properties["reachable"] = res.Reached
	f.Properties["converged"] = res.Converged
	f.Properties["node_ids"] = res.NodeIDs
	return f
}

func finiteCost(c float32) *float64 {
	f := float64(c)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

func queryFloat(r *http.Request, name string) (float64, error) {
	v, err := strconv.ParseFloat(r.URL.Query().Get(name), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("must be a finite number")
	}
	return v, nil
}

// queryPoint reads a lon/lat pair. The returned field names the offending
// parameter on error.
func queryPoint(r *http.Request, lonKey, latKey string) (orb.Point, string, error) {
	lon, err := queryFloat(r, lonKey)
	if err != nil {
		return orb.Point{}, lonKey, err
	}
	if lon < -180 || lon > 180 {
		return orb.Point{}, lonKey, errors.New("longitude out of range")
	}
	lat, err := queryFloat(r, latKey)
	if err != nil {
		return orb.Point{}, latKey, err
	}
	if lat < -90 || lat > 90 {
		return orb.Point{}, latKey, errors.New("latitude out of range")
	}
	return orb.Point{lon, lat}, "", nil
}

func writeQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, routing.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "")
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request_timeout", "")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	writeJSON(w, status, ErrorResponse{Error: code, Field: field})
}
