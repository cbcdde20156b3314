package mysql

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/mistriapp/mistri/server/contexts/ctxerr"
	"github.com/mistriapp/mistri/server/mistri"
)

func (ds *Datastore) User(ctx context.Context, id string) (*mistri.User, error) {
	var user mistri.User
	err := sqlx.GetContext(ctx, ds.db, &user,
		`SELECT id, name, phone, role, avatar, created_at FROM users WHERE id = ?`, id)
	switch {
	case err == sql.ErrNoRows:
		return nil, ctxerr.Wrap(ctx, notFound("User").WithID(id))
	case err != nil:
		return nil, &mistri.PersistenceError{Op: "select user", Err: err}
	}
	return &user, nil
}

func (ds *Datastore) SaveUser(ctx context.Context, user *mistri.User) error {
	query := `
INSERT INTO users (id, name, phone, role, avatar)
VALUES (?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name = VALUES(name),
    phone = VALUES(phone),
    role = VALUES(role),
    avatar = VALUES(avatar)
`
	_, err := ds.db.ExecContext(ctx, query, user.ID, user.Name, user.Phone, user.Role, user.Avatar)
	if err != nil {
		return &mistri.PersistenceError{Op: "save user", Err: err}
	}
	return nil
}
