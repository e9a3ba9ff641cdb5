package biometric

import (
	"context"

	"smartattendance/internal/apperr"
	"smartattendance/internal/store"
)

// Repository persists enrolled templates in Postgres.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

const templateColumns = `
	SELECT b.id, u.id, u.uuid, u.firstname, u.lastname, b.face_template, b.fingerprint_template, b.created_at
	FROM biometrics b
	JOIN users u ON u.id = b.user_id`

// FaceTemplates returns every template with a face vector, in enrollment order.
func (r *Repository) FaceTemplates(ctx context.Context) ([]Template, error) {
	return r.list(ctx, templateColumns+` WHERE b.face_template IS NOT NULL ORDER BY b.id`)
}

// FingerprintTemplates returns every template with a fingerprint blob, in enrollment order.
func (r *Repository) FingerprintTemplates(ctx context.Context) ([]Template, error) {
	return r.list(ctx, templateColumns+` WHERE b.fingerprint_template IS NOT NULL ORDER BY b.id`)
}

func (r *Repository) list(ctx context.Context, query string) ([]Template, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.Persistence("query templates", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Owner.UserID, &t.Owner.UUID, &t.Owner.Firstname, &t.Owner.Lastname,
			&t.Face, &t.Fingerprint, &t.CreatedAt); err != nil {
			return nil, apperr.Persistence("scan template", err)
		}
		out = append(out, t)
	}
	return out, apperr.Persistence("iterate templates", rows.Err())
}

// Enroll stores a template for the user. At least one modality is required.
func (r *Repository) Enroll(ctx context.Context, userID int64, face FaceVector, fingerprint []byte) (Template, error) {
	if len(face) == 0 && len(fingerprint) == 0 {
		return Template{}, apperr.Validation("no biometric template provided")
	}

	var faceRaw []byte
	if len(face) > 0 {
		enc, err := face.Encode()
		if err != nil {
			return Template{}, apperr.Validation(err.Error())
		}
		faceRaw = enc
	}
	if len(fingerprint) == 0 {
		fingerprint = nil
	}

	t := Template{Owner: Owner{UserID: userID}, Face: faceRaw, Fingerprint: fingerprint}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO biometrics (user_id, face_template, fingerprint_template)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, userID, faceRaw, fingerprint)
	if err := row.Scan(&t.ID, &t.CreatedAt); err != nil {
		if store.IsForeignKeyViolation(err) {
			return Template{}, apperr.NotFound("user")
		}
		return Template{}, apperr.Persistence("insert template", err)
	}
	return t, nil
}
