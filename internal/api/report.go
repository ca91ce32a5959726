package api

import (
	"net/http"

	"github.com/banshee-data/motion.profile/internal/httputil"
	"github.com/banshee-data/motion.profile/internal/profile"
	"github.com/banshee-data/motion.profile/internal/report"
)

// renderChart serves the interactive HTML chart for a project: the
// reconstructed node polyline, the per-segment average-velocity steps, and
// any uploaded ground truth overlay.
func (s *Server) renderChart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	project, err := s.db.GetProject(id)
	if err != nil {
		writeDBError(w, err)
		return
	}

	sess, err := s.sessionFor(id)
	if err != nil {
		writeDBError(w, err)
		return
	}

	var data report.ChartData
	err = sess.withLock(func(ctrl *profile.Controller) error {
		if !ctrl.Ready() {
			return profile.ErrNotPrepared
		}
		nodes, err := ctrl.Nodes()
		if err != nil {
			return err
		}
		data = report.ChartData{
			Title: project.Name,
			Units: sess.cfg.GetUnits(),
			Nodes: nodes,
			Steps: report.StepSeries(ctrl.Profile(), sess.cfg.GetUnits()),
		}
		return nil
	})
	if err != nil {
		httputil.Conflict(w, err.Error())
		return
	}

	truth, err := s.db.GroundTruth(id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	data.GroundTruth = truth

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderChart(w, data); err != nil {
		httputil.InternalServerError(w, err.Error())
	}
}

type groundTruthResponse struct {
	Points  int             `json:"points"`
	Metrics *report.Metrics `json:"metrics,omitempty"`
}

// uploadGroundTruth stores a reference velocity series (CSV body: time,
// velocity in the project's display units) and, when a profile is prepared,
// returns error metrics of the reconstruction against it.
func (s *Server) uploadGroundTruth(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := s.db.GetProject(id); err != nil {
		writeDBError(w, err)
		return
	}

	points, err := report.ParseGroundTruthCSV(r.Body)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	if err := s.db.SaveGroundTruth(id, points); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	resp := groundTruthResponse{Points: len(points)}

	sess, err := s.sessionFor(id)
	if err != nil {
		writeDBError(w, err)
		return
	}
	_ = sess.withLock(func(ctrl *profile.Controller) error {
		if !ctrl.Ready() {
			return nil // stored; metrics once a profile exists
		}
		nodes, err := ctrl.Nodes()
		if err != nil {
			return nil
		}
		m := report.Compare(nodes, points)
		resp.Metrics = &m
		return nil
	})

	httputil.WriteJSONOK(w, resp)
}
