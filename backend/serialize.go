package backend

import (
	"context"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/wansing/infodesk/auth"
	"github.com/wansing/infodesk/core"
	"github.com/wansing/infodesk/markup"
)

type userJSON struct {
	ID           int        `json:"id"`
	Email        string     `json:"email"`
	Fullname     string     `json:"fullname"`
	Role         string     `json:"role"`
	IsApproved   bool       `json:"is_approved"`
	IsUser       bool       `json:"is_user"`
	IsSuperuser  bool       `json:"is_superuser"`
	Capabilities []string   `json:"capabilities"`
	CreatedAt    time.Time  `json:"created_at"`
	ApprovalDate *time.Time `json:"approval_date"`
}

func newUserJSON(a *core.Account) *userJSON {
	if a == nil {
		return nil
	}
	return &userJSON{
		ID:           a.ID,
		Email:        a.Email,
		Fullname:     a.DisplayName,
		Role:         a.Role,
		IsApproved:   a.Capabilities.Has(auth.Approved),
		IsUser:       a.Capabilities.Has(auth.Approver),
		IsSuperuser:  a.Capabilities.Has(auth.Superuser),
		Capabilities: a.Capabilities.Names(),
		CreatedAt:    a.CreatedAt,
		ApprovalDate: a.ApprovedAt,
	}
}

type pendingJSON struct {
	ID              int       `json:"id"`
	Heading         string    `json:"heading"`
	Description     string    `json:"description"`
	DescriptionHTML string    `json:"description_html"`
	Excerpt         string    `json:"excerpt"`
	Image           *string   `json:"image"`
	SubmittedBy     *userJSON `json:"submitted_by"`
	SubmittedAt     time.Time `json:"submitted_at"`
	Status          string    `json:"status"`
}

type activeJSON struct {
	ID              int       `json:"id"`
	PendingID       *int      `json:"pending_id"`
	Heading         string    `json:"heading"`
	Description     string    `json:"description"`
	DescriptionHTML string    `json:"description_html"`
	Excerpt         string    `json:"excerpt"`
	Image           *string   `json:"image"`
	SubmittedBy     *userJSON `json:"submitted_by"`
	ApprovedBy      *userJSON `json:"approved_by"`
	ApprovedAt      time.Time `json:"approved_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// serializer resolves nested accounts and image URLs for one response.
type serializer struct {
	accounts map[int]*core.Account
	base     string // absolute URL prefix of the API
}

func (r *request) serializer(pending []*core.PendingSubmission, active []*core.ActiveSubmission) (*serializer, error) {
	var ids []int
	for _, p := range pending {
		ids = append(ids, p.SubmitterID)
	}
	for _, a := range active {
		ids = append(ids, a.SubmitterID, a.ApproverID)
	}
	accounts, err := r.db.Accounts(r.Context(), ids...)
	if err != nil {
		return nil, err
	}
	return &serializer{
		accounts: accounts,
		base:     absoluteBase(r.Request, r.opts.Base),
	}, nil
}

// absoluteBase returns scheme, host and path prefix. It respects X-Forwarded-Proto of a reverse proxy.
func absoluteBase(req *http.Request, base string) string {
	var scheme = "http"
	if req.TLS != nil {
		scheme = "https"
	}
	if proto := req.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + req.Host + strings.TrimSuffix(base, "/")
}

func (s *serializer) imageURL(ref string) *string {
	if ref == "" {
		return nil
	}
	var url = s.base + path.Join("/media", ref)
	return &url
}

func (s *serializer) pending(p *core.PendingSubmission) *pendingJSON {
	return &pendingJSON{
		ID:              p.ID,
		Heading:         p.Heading,
		Description:     p.Description,
		DescriptionHTML: markup.Render(p.Description),
		Excerpt:         markup.Excerpt(p.Description, markup.DefaultExcerptLength),
		Image:           s.imageURL(p.Image),
		SubmittedBy:     newUserJSON(s.accounts[p.SubmitterID]),
		SubmittedAt:     p.SubmittedAt,
		Status:          string(p.Status),
	}
}

func (s *serializer) active(a *core.ActiveSubmission) *activeJSON {
	var result = &activeJSON{
		ID:              a.ID,
		Heading:         a.Heading,
		Description:     a.Description,
		DescriptionHTML: markup.Render(a.Description),
		Excerpt:         markup.Excerpt(a.Description, markup.DefaultExcerptLength),
		Image:           s.imageURL(a.Image),
		SubmittedBy:     newUserJSON(s.accounts[a.SubmitterID]),
		ApprovedBy:      newUserJSON(s.accounts[a.ApproverID]),
		ApprovedAt:      a.ApprovedAt,
		CreatedAt:       a.CreatedAt,
	}
	if a.PendingID != 0 {
		var pendingID = a.PendingID
		result.PendingID = &pendingID
	}
	return result
}

func (s *serializer) pendingList(all []*core.PendingSubmission) []*pendingJSON {
	var result = make([]*pendingJSON, 0, len(all))
	for _, p := range all {
		result = append(result, s.pending(p))
	}
	return result
}

func (s *serializer) activeList(all []*core.ActiveSubmission) []*activeJSON {
	var result = make([]*activeJSON, 0, len(all))
	for _, a := range all {
		result = append(result, s.active(a))
	}
	return result
}

func userList(all []*core.Account) []*userJSON {
	var result = make([]*userJSON, 0, len(all))
	for _, a := range all {
		result = append(result, newUserJSON(a))
	}
	return result
}

// pinger is implemented by *sqldb.AccountDB through its embedded *sql.DB.
type pinger interface {
	PingContext(ctx context.Context) error
}
