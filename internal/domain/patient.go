package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Patient is the read-only view the scheduling core has of the patient
// directory: enough to validate existence and decorate responses with a
// display name. Patient records are owned elsewhere.
type Patient struct {
	bun.BaseModel `bun:"table:patients"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	FullName  string    `bun:"full_name,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}
