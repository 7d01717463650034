package controllers

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sudhishp/kestrel/internal/pqueue"
	"github.com/sudhishp/kestrel/internal/runtime"
)

var errInvalidXid = errors.New("controllers: invalid xid")

// QueuesController exposes the OperationFacade (add/get/ack/abort/flush/
// delete/stats) over JSON-over-HTTP, one route per operation, matching
// Kestrel's own thrift-free HTTP memcache-ish interface in spirit.
type QueuesController struct {
	rt *runtime.Runtime
}

// NewQueuesController creates a new queues controller.
func NewQueuesController(rt *runtime.Runtime) *QueuesController {
	return &QueuesController{rt: rt}
}

// RegisterRoutes registers queue operation routes with the given mux.
func (c *QueuesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/queues/", c.handleQueue)
}

// handleQueue dispatches /v1/queues/{name}/{op} to the matching operation.
// A single prefix handler (rather than one HandleFunc per templated route)
// matches net/http's pre-1.22 ServeMux, which cannot pattern-match path
// segments.
func (c *QueuesController) handleQueue(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/queues/")
	if rest == "" {
		writeError(w, http.StatusNotFound, "missing queue name")
		return
	}

	var name, op string
	if idx := strings.LastIndexByte(rest, '/'); idx > 0 {
		name, op = rest[:idx], rest[idx+1:]
	} else {
		name = rest
	}

	switch op {
	case "add":
		c.handleAdd(w, r, name)
	case "get":
		c.handleGet(w, r, name)
	case "ack":
		c.handleAck(w, r, name)
	case "abort":
		c.handleAbort(w, r, name)
	case "flush":
		c.handleFlush(w, r, name)
	case "flushExpired":
		c.handleFlushExpired(w, r, name)
	case "stats":
		c.handleStats(w, r, name)
	default:
		if op == "" {
			c.handleDelete(w, r, name)
			return
		}
		writeError(w, http.StatusNotFound, "unknown queue operation")
	}
}

func (c *QueuesController) handleAdd(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req addReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ok, err := c.rt.Collection().Add(r.Context(), name, req.Data, req.ExpiresAtMs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, addResp{OK: ok})
}

func (c *QueuesController) handleGet(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req getReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	deadline := time.Now()
	if req.WaitMs > 0 {
		deadline = deadline.Add(time.Duration(req.WaitMs) * time.Millisecond)
	}
	item, xid, found, err := c.rt.Collection().Remove(r.Context(), name, deadline, req.Transactional, req.Peek)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := getResp{Found: found}
	if found {
		resp.Data = item.Data
		resp.AddedAtMs = item.AddedAtMs
		resp.ExpiresAtMs = item.ExpiresAtMs
		if req.Transactional && !req.Peek {
			resp.Xid = encodeXid(xid)
		}
	}
	writeJSON(w, resp)
}

func (c *QueuesController) handleAck(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req ackReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	xid, err := decodeXid(req.Xid)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid xid")
		return
	}
	if err := c.rt.Collection().ConfirmRemove(r.Context(), name, xid); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeNoContent(w)
}

func (c *QueuesController) handleAbort(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req abortReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	xid, err := decodeXid(req.Xid)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid xid")
		return
	}
	if err := c.rt.Collection().Unremove(r.Context(), name, xid); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeNoContent(w)
}

func (c *QueuesController) handleFlush(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := c.rt.Collection().Flush(r.Context(), name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeNoContent(w)
}

func (c *QueuesController) handleFlushExpired(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	n, err := c.rt.Collection().FlushExpired(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, countResp{Count: n})
}

func (c *QueuesController) handleDelete(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := c.rt.Collection().Delete(name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeNoContent(w)
}

func (c *QueuesController) handleStats(w http.ResponseWriter, r *http.Request, name string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	stats, found := c.rt.Collection().Stats(name)
	writeJSON(w, statsResp{Found: found, Stats: stats})
}

func encodeXid(xid pqueue.Xid) string {
	return hex.EncodeToString(xid[:])
}

func decodeXid(s string) (pqueue.Xid, error) {
	var xid pqueue.Xid
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(xid) {
		return xid, errInvalidXid
	}
	copy(xid[:], b)
	return xid, nil
}
