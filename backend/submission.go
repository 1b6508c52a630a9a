package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/infodesk/core"
)

func submitInfo(w http.ResponseWriter, r *request, _ httprouter.Params) error {

	var req = core.SubmitRequest{
		Heading:     r.input.get("heading"),
		Description: r.input.get("description"),
	}
	if r.input.image != nil {
		req.Image = r.input.image
	}

	submission, err := r.db.Submit(r.Context(), r.Account, req)
	if err != nil {
		return err
	}

	switch submission.Stage() {
	case core.StageActive:
		s, err := r.serializer(nil, []*core.ActiveSubmission{submission.Active})
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"message":     "Information submitted and approved directly",
			"active_info": s.active(submission.Active),
		})
	default:
		s, err := r.serializer([]*core.PendingSubmission{submission.Pending}, nil)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"message":      "Information submitted successfully for approval",
			"pending_info": s.pending(submission.Pending),
		})
	}
	return nil
}

func pendingInfo(w http.ResponseWriter, r *request, _ httprouter.Params) error {
	page, err := readPage(r.Request)
	if err != nil {
		return err
	}
	all, err := r.db.ListPending(r.Context(), page)
	if err != nil {
		return err
	}
	s, err := r.serializer(all, nil)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, s.pendingList(all))
	return nil
}

func activeInfo(w http.ResponseWriter, r *request, _ httprouter.Params) error {
	page, err := readPage(r.Request)
	if err != nil {
		return err
	}
	all, err := r.db.ListActive(r.Context(), page)
	if err != nil {
		return err
	}
	s, err := r.serializer(nil, all)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, s.activeList(all))
	return nil
}

func approveInfo(w http.ResponseWriter, r *request, params httprouter.Params) error {

	id, err := pathID(params)
	if err != nil {
		return err
	}

	pending, active, err := r.db.ApprovePending(r.Context(), id, r.Account)
	if err != nil {
		return err
	}

	s, err := r.serializer([]*core.PendingSubmission{pending}, []*core.ActiveSubmission{active})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Information approved successfully",
		"pending_info": s.pending(pending),
		"active_info":  s.active(active),
	})
	return nil
}

func rejectInfo(w http.ResponseWriter, r *request, params httprouter.Params) error {

	id, err := pathID(params)
	if err != nil {
		return err
	}

	pending, err := r.db.RejectPending(r.Context(), id, r.Account)
	if err != nil {
		return err
	}

	s, err := r.serializer([]*core.PendingSubmission{pending}, nil)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Information rejected successfully",
		"pending_info": s.pending(pending),
	})
	return nil
}

func mySubmissions(w http.ResponseWriter, r *request, _ httprouter.Params) error {

	page, err := readPage(r.Request)
	if err != nil {
		return err
	}

	mine, err := r.db.ListForAccount(r.Context(), r.Account, page)
	if err != nil {
		return err
	}

	s, err := r.serializer(mine.Pending, mine.Active)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pending_submissions":  s.pendingList(mine.Pending),
		"approved_submissions": s.activeList(mine.Active),
	})
	return nil
}

func healthz(w http.ResponseWriter, r *request, _ httprouter.Params) error {
	if p, ok := r.db.AccountDB.(pinger); ok {
		if err := p.PingContext(r.Context()); err != nil {
			return err
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}
