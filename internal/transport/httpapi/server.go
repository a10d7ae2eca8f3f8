// Package httpapi exposes the original REST surface next to the websocket:
// read-only parcel queries plus purchase and listing management. Mutations
// go through the same serialized world path as websocket requests.
package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"voxelverse.gg/internal/protocol"
	"voxelverse.gg/internal/sim/world"
)

type Server struct {
	world  *world.World
	logger *log.Logger
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{world: w, logger: logger}
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/parcels", s.handleListParcels)
	mux.HandleFunc("GET /api/parcels/{id}", s.handleGetParcel)
	mux.HandleFunc("GET /api/parcels/owner/{address}", s.handleParcelsByOwner)
	mux.HandleFunc("GET /api/can-build", s.handleCanBuild)
	mux.HandleFunc("POST /api/parcels/{id}/purchase", s.handlePurchase)
	mux.HandleFunc("POST /api/parcels/{id}/list", s.handleList)
	mux.HandleFunc("POST /api/parcels/{id}/cancel", s.handleCancel)
}

func (s *Server) handleListParcels(rw http.ResponseWriter, r *http.Request) {
	parcels, err := s.world.Parcels(r.Context())
	if err != nil {
		writeError(rw, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, parcels)
}

func (s *Server) handleGetParcel(rw http.ResponseWriter, r *http.Request) {
	id, ok := parcelID(rw, r)
	if !ok {
		return
	}
	p, err := s.world.ParcelByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, world.ErrNotFound) {
			writeError(rw, http.StatusNotFound, "Parcel not found")
			return
		}
		writeError(rw, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, p)
}

func (s *Server) handleParcelsByOwner(rw http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	parcels, err := s.world.ParcelsByOwner(r.Context(), address)
	if err != nil {
		writeError(rw, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, parcels)
}

func (s *Server) handleCanBuild(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	address := q.Get("address")
	if address == "" || q.Get("x") == "" || q.Get("y") == "" || q.Get("z") == "" {
		writeError(rw, http.StatusBadRequest, "Missing required parameters")
		return
	}
	x, errX := strconv.Atoi(q.Get("x"))
	y, errY := strconv.Atoi(q.Get("y"))
	z, errZ := strconv.Atoi(q.Get("z"))
	if errX != nil || errY != nil || errZ != nil {
		writeError(rw, http.StatusBadRequest, "Coordinates must be integers")
		return
	}
	ok, err := s.world.CanBuildAt(r.Context(), address, x, y, z)
	if err != nil {
		writeError(rw, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(rw, http.StatusOK, map[string]bool{"can_build": ok})
}

func (s *Server) handlePurchase(rw http.ResponseWriter, r *http.Request) {
	id, ok := parcelID(rw, r)
	if !ok {
		return
	}
	var body struct {
		BuyerAddress string `json:"buyer_address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(rw, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	res, err := s.world.SubmitPurchase(r.Context(), id, body.BuyerAddress)
	if err != nil {
		writeError(rw, http.StatusServiceUnavailable, err.Error())
		return
	}
	if !res.OK {
		writeJSON(rw, statusForCode(res.Code), map[string]any{
			"success": false,
			"code":    res.Code,
			"error":   res.Message,
		})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"success": true,
		"message": res.Message,
		"parcel":  res.Parcel,
	})
}

func (s *Server) handleList(rw http.ResponseWriter, r *http.Request) {
	id, ok := parcelID(rw, r)
	if !ok {
		return
	}
	var body struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(rw, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if body.Price < 0 {
		writeError(rw, http.StatusBadRequest, "Price must be >= 0")
		return
	}
	s.finishListing(rw, r, id, body.Price, true)
}

func (s *Server) handleCancel(rw http.ResponseWriter, r *http.Request) {
	id, ok := parcelID(rw, r)
	if !ok {
		return
	}
	s.finishListing(rw, r, id, 0, false)
}

// No caller ownership verification happens here; listing management is
// unauthenticated in this core, matching the reference behavior.
func (s *Server) finishListing(rw http.ResponseWriter, r *http.Request, id int64, price float64, forSale bool) {
	res, err := s.world.SubmitListing(r.Context(), id, price, forSale)
	if err != nil {
		writeError(rw, http.StatusServiceUnavailable, err.Error())
		return
	}
	if !res.OK {
		writeJSON(rw, statusForCode(res.Code), map[string]any{
			"success": false,
			"code":    res.Code,
			"error":   res.Message,
		})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{
		"success": true,
		"parcel":  res.Parcel,
	})
}

func parcelID(rw http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(rw, http.StatusBadRequest, "Invalid parcel id")
		return 0, false
	}
	return id, true
}

func statusForCode(code string) int {
	switch code {
	case protocol.ErrNotFound:
		return http.StatusNotFound
	case protocol.ErrValidation, protocol.ErrInvalidState:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func writeError(rw http.ResponseWriter, status int, msg string) {
	writeJSON(rw, status, map[string]string{"error": msg})
}
