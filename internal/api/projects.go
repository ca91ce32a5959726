package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/banshee-data/motion.profile/internal/classify"
	"github.com/banshee-data/motion.profile/internal/config"
	"github.com/banshee-data/motion.profile/internal/db"
	"github.com/banshee-data/motion.profile/internal/httputil"
	"github.com/banshee-data/motion.profile/internal/profile"
	"github.com/banshee-data/motion.profile/internal/segment"
)

type createProjectRequest struct {
	Name     string               `json:"name"`
	Settings *config.TuningConfig `json:"settings,omitempty"`
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Name == "" {
		httputil.BadRequest(w, "project name is required")
		return
	}

	project, err := s.db.CreateProject(req.Name, req.Settings)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, project)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.db.ListProjects()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if projects == nil {
		projects = []db.Project{}
	}
	httputil.WriteJSONOK(w, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	project, err := s.db.GetProject(r.PathValue("id"))
	if err != nil {
		writeDBError(w, err)
		return
	}
	httputil.WriteJSONOK(w, project)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	settings := config.EmptyTuningConfig()
	if err := httputil.DecodeJSON(r, settings); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := settings.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	if err := s.db.UpdateSettings(id, settings); err != nil {
		writeDBError(w, err)
		return
	}

	// Settings feed the solver; any cached profile is stale now.
	s.sessions.drop(id)

	project, err := s.db.GetProject(id)
	if err != nil {
		writeDBError(w, err)
		return
	}
	httputil.WriteJSONOK(w, project)
}

func (s *Server) getSegments(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.db.GetProject(id); err != nil {
		writeDBError(w, err)
		return
	}

	rows, err := s.db.Rows(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if rows == nil {
		rows = []segment.Raw{}
	}
	httputil.WriteJSONOK(w, rows)
}

type replaceSegmentsRequest struct {
	Segments []segment.Raw `json:"segments"`
}

// replaceSegments swaps the project's measurement table wholesale and
// triggers a full rebuild. The table is stored as entered even when it fails
// validation; a failed rebuild leaves the profile unprepared and blocks drag
// updates until the measurements are fixed.
func (s *Server) replaceSegments(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req replaceSegmentsRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	if err := s.db.ReplaceRows(id, req.Segments); err != nil {
		writeDBError(w, err)
		return
	}
	s.sessions.drop(id)

	sess, err := s.sessionFor(id)
	if err != nil {
		writeDBError(w, err)
		return
	}

	var resp *profileResponse
	rebuildErr := sess.withLock(func(ctrl *profile.Controller) error {
		if !ctrl.Ready() {
			// sessionFor swallowed a validation failure; rerun the
			// build to surface the exact error to the caller.
			if _, err := ctrl.PrepareInitialProfile(req.Segments); err != nil {
				return err
			}
		}
		resp = s.buildProfileResponse(id, sess.cfg, ctrl)
		return nil
	})

	if rebuildErr != nil {
		var verr *segment.ValidationError
		if errors.As(rebuildErr, &verr) {
			httputil.BadRequest(w, verr.Error())
			return
		}
		httputil.InternalServerError(w, rebuildErr.Error())
		return
	}

	if err := s.db.SaveNodes(id, resp.Nodes); err != nil {
		log.Printf("failed to snapshot nodes for project %s: %v", id, err)
	}
	httputil.WriteJSONOK(w, resp)
}

type profileResponse struct {
	State      string                   `json:"state"`
	Anchor     int                      `json:"anchor"`
	Units      string                   `json:"units"`
	Nodes      []profile.Node           `json:"nodes"`
	Segments   []classify.SegmentReport `json:"segments"`
	Verified   bool                     `json:"verified"`
	ClampDrift []profile.Mismatch       `json:"clamp_drift,omitempty"`
}

// buildProfileResponse assembles the full engine view for a prepared
// controller. Callers must hold the session lock.
func (s *Server) buildProfileResponse(id string, cfg *config.TuningConfig, ctrl *profile.Controller) *profileResponse {
	prof := ctrl.Profile()
	nodes, _ := ctrl.Nodes()
	if nodes == nil {
		nodes = []profile.Node{}
	}

	verify := profile.Verify(prof, cfg.GetVerifyTolerance())
	if !verify.OK {
		log.Printf("project %s: distance conservation failed: %v", id, verify.Mismatches)
	}

	drift := profile.ClampDrift(prof, cfg.GetVerifyTolerance())
	if len(drift) > 0 {
		log.Printf("project %s: presentation clamp altered %d segment distance(s)", id, len(drift))
	}

	reports := classify.Classify(prof, cfg)
	if reports == nil {
		reports = []classify.SegmentReport{}
	}

	return &profileResponse{
		State:      ctrl.State().String(),
		Anchor:     prof.Anchor,
		Units:      cfg.GetUnits(),
		Nodes:      nodes,
		Segments:   reports,
		Verified:   verify.OK,
		ClampDrift: drift,
	}
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess, err := s.sessionFor(id)
	if err != nil {
		writeDBError(w, err)
		return
	}

	var resp *profileResponse
	err = sess.withLock(func(ctrl *profile.Controller) error {
		if !ctrl.Ready() {
			return profile.ErrNotPrepared
		}
		resp = s.buildProfileResponse(id, sess.cfg, ctrl)
		return nil
	})
	if err != nil {
		httputil.Conflict(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, resp)
}

func writeDBError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "project not found")
		return
	}
	httputil.InternalServerError(w, err.Error())
}
