package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/banshee-data/motion.profile/internal/httputil"
	"github.com/banshee-data/motion.profile/internal/profile"
)

type dragBeginRequest struct {
	AnchorIndex int `json:"anchor_index"`
}

type dragBeginResponse struct {
	DragID string         `json:"drag_id"`
	Anchor int            `json:"anchor"`
	Nodes  []profile.Node `json:"nodes"`
}

// dragBegin starts an interactive drag on a node. The drag id is advisory:
// updates are applied in arrival order regardless, and a client that loses it
// can keep updating or begin a fresh drag on the same node.
func (s *Server) dragBegin(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req dragBeginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	sess, err := s.sessionFor(id)
	if err != nil {
		writeDBError(w, err)
		return
	}

	var resp dragBeginResponse
	err = sess.withLock(func(ctrl *profile.Controller) error {
		if err := ctrl.BeginDrag(req.AnchorIndex); err != nil {
			return err
		}
		nodes, err := ctrl.Nodes()
		if err != nil {
			return err
		}
		resp = dragBeginResponse{
			DragID: uuid.NewString(),
			Anchor: ctrl.Profile().Anchor,
			Nodes:  nodes,
		}
		return nil
	})
	if err != nil {
		writeDragError(w, err)
		return
	}
	httputil.WriteJSONOK(w, resp)
}

type dragUpdateRequest struct {
	Velocity float64 `json:"velocity"`
	Method   string  `json:"method,omitempty"`
	// PointIndex routes the update through a non-anchor node: the velocity
	// is interpreted as the desired value at that node and converted to the
	// implied anchor velocity first.
	PointIndex *int `json:"point_index,omitempty"`
}

type dragUpdateResponse struct {
	AnchorVelocity float64        `json:"anchor_velocity"`
	Nodes          []profile.Node `json:"nodes"`
}

func (s *Server) dragUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req dragUpdateRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Method == "" {
		req.Method = profile.MethodDirect
	}

	sess, err := s.sessionFor(id)
	if err != nil {
		writeDBError(w, err)
		return
	}

	var resp dragUpdateResponse
	err = sess.withLock(func(ctrl *profile.Controller) error {
		velocity := req.Velocity
		if req.PointIndex != nil {
			implied, err := ctrl.ReverseAnchorFromPoint(*req.PointIndex, req.Velocity)
			if err != nil {
				return err
			}
			velocity = implied
		}

		nodes, err := ctrl.UpdateRealtime(velocity, req.Method)
		if err != nil {
			return err
		}
		resp = dragUpdateResponse{AnchorVelocity: velocity, Nodes: nodes}
		return nil
	})
	if err != nil {
		writeDragError(w, err)
		return
	}
	httputil.WriteJSONOK(w, resp)
}

// dragRelease commits the drag and snapshots the resulting nodes.
func (s *Server) dragRelease(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess, err := s.sessionFor(id)
	if err != nil {
		writeDBError(w, err)
		return
	}

	var resp *profileResponse
	err = sess.withLock(func(ctrl *profile.Controller) error {
		if err := ctrl.Release(); err != nil {
			return err
		}
		resp = s.buildProfileResponse(id, sess.cfg, ctrl)
		return nil
	})
	if err != nil {
		writeDragError(w, err)
		return
	}

	if err := s.db.SaveNodes(id, resp.Nodes); err != nil {
		log.Printf("failed to snapshot nodes for project %s: %v", id, err)
	}
	httputil.WriteJSONOK(w, resp)
}

// writeDragError maps controller errors onto HTTP statuses: lifecycle
// violations are conflicts, everything else is a bad request.
func writeDragError(w http.ResponseWriter, err error) {
	if errors.Is(err, profile.ErrNotPrepared) || errors.Is(err, profile.ErrNotDragging) {
		httputil.Conflict(w, err.Error())
		return
	}
	httputil.BadRequest(w, err.Error())
}
