package storage

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const requestColumns = `id, name, email, message, created_at, is_reviewed`

// CreateAccessRequest inserts a pending request. An existing request for the
// same email (case insensitive) yields ErrDuplicate and is left untouched.
func (p *SQLProvider) CreateAccessRequest(ctx context.Context, req *AccessRequest) error {
	req.Email = strings.TrimSpace(req.Email)
	req.CreatedAt = time.Now().UTC()
	req.IsReviewed = false

	res, err := p.db.NamedExecContext(ctx, `
		INSERT INTO access_requests (name, email, message, created_at, is_reviewed)
		VALUES (:name, :email, :message, :created_at, :is_reviewed)`, req)
	if err != nil {
		if p.isUnique(err) {
			return fmt.Errorf("access request for %s: %w", req.Email, ErrDuplicate)
		}
		return err
	}
	req.ID, err = res.LastInsertId()
	return err
}

func (p *SQLProvider) GetAccessRequest(ctx context.Context, id int64) (*AccessRequest, error) {
	var req AccessRequest
	if err := p.db.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM access_requests WHERE id = ?`, id); err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (p *SQLProvider) GetAccessRequestByEmail(ctx context.Context, email string) (*AccessRequest, error) {
	var req AccessRequest
	err := p.db.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM access_requests WHERE email = ?`, strings.TrimSpace(email))
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

// ListAccessRequests returns requests newest first.
func (p *SQLProvider) ListAccessRequests(ctx context.Context, pendingOnly bool) ([]AccessRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM access_requests`
	if pendingOnly {
		query += ` WHERE is_reviewed = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var reqs []AccessRequest
	err := p.db.SelectContext(ctx, &reqs, query)
	return reqs, err
}

func (p *SQLProvider) MarkAccessRequestReviewed(ctx context.Context, id int64) error {
	return requireRow(p.db.ExecContext(ctx, `UPDATE access_requests SET is_reviewed = 1 WHERE id = ?`, id))
}
