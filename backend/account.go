package backend

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/wansing/infodesk/auth"
	"github.com/wansing/infodesk/core"
)

func register(w http.ResponseWriter, r *request, _ httprouter.Params) error {
	var in = r.input
	account, err := r.db.Register(r.Context(), core.RegisterRequest{
		Email:           in.get("email"),
		Password:        in.get("password"),
		PasswordConfirm: in.get("password_confirm"),
		DisplayName:     in.get("fullname"),
		Role:            in.get("role"),
	})
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully. Please wait for approval.",
		"user":    newUserJSON(account),
	})
	return nil
}

// login checks the credentials and stores the account id in the session.
func login(w http.ResponseWriter, r *request, _ httprouter.Params) error {

	var cred = r.input.credentials()
	if email, password, ok := r.BasicAuth(); ok && cred.Empty() {
		cred = core.Credentials{Email: email, Password: password}
	}

	account, err := r.db.Authenticate(r.Context(), cred)
	if err != nil {
		return err
	}
	if err := core.Require(account, auth.Approved); err != nil {
		return err
	}

	if sm := r.db.SessionManager; sm != nil {
		if err := sm.RenewToken(r.Context()); err != nil {
			return err
		}
		sm.Put(r.Context(), sessionKey, account.ID)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    newUserJSON(account),
	})
	return nil
}

func logout(w http.ResponseWriter, r *request, _ httprouter.Params) error {
	if sm := r.db.SessionManager; sm != nil {
		if err := sm.Destroy(r.Context()); err != nil {
			return err
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Logout successful",
	})
	return nil
}

func profile(w http.ResponseWriter, r *request, _ httprouter.Params) error {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User profile retrieved successfully",
		"user":    newUserJSON(r.Account),
	})
	return nil
}

func pendingUsers(w http.ResponseWriter, r *request, _ httprouter.Params) error {
	page, err := readPage(r.Request)
	if err != nil {
		return err
	}
	accounts, err := r.db.ListUnapproved(r.Context(), page)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, userList(accounts))
	return nil
}

func approveUser(w http.ResponseWriter, r *request, params httprouter.Params) error {

	id, err := pathID(params)
	if err != nil {
		return err
	}

	makeApprover, err := r.input.bool("make_approver")
	if err != nil {
		return err
	}

	account, err := r.db.ApproveAccountByID(r.Context(), id, r.Account, makeApprover)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User " + account.Email + " has been approved",
		"user":    newUserJSON(account),
	})
	return nil
}

// pathID returns ErrNotFound for ids which can't exist.
func pathID(params httprouter.Params) (int, error) {
	id, err := strconv.Atoi(params.ByName("id"))
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}
