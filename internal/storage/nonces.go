package storage

import (
	"context"
	"time"
)

func (p *SQLProvider) CreateNonce(ctx context.Context, nonce string, expiresAt time.Time) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO nonces (nonce, expires_at) VALUES (?, ?)`, nonce, expiresAt.UTC())
	return err
}

func (p *SQLProvider) ExistsNonce(ctx context.Context, nonce string) (bool, error) {
	var n int
	err := p.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM nonces WHERE nonce = ? AND expires_at > ?`, nonce, time.Now().UTC())
	return n > 0, err
}

// ConsumeNonce deletes an unexpired nonce and reports whether it was there.
func (p *SQLProvider) ConsumeNonce(ctx context.Context, nonce string) (bool, error) {
	res, err := p.db.ExecContext(ctx, `DELETE FROM nonces WHERE nonce = ? AND expires_at > ?`, nonce, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (p *SQLProvider) ExpireNonces(ctx context.Context, now time.Time) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM nonces WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		p.logger.Debug("Expired nonces", "count", n)
	}
	return nil
}
