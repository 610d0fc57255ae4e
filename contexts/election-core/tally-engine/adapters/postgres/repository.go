package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"scrutin/contexts/election-core/tally-engine/domain/entities"
	domainerrors "scrutin/contexts/election-core/tally-engine/domain/errors"
	"scrutin/contexts/election-core/tally-engine/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists certified results and the event dedup ledger.
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) SaveCertifiedResult(ctx context.Context, result entities.CertifiedResult) error {
	sessionID := strings.TrimSpace(result.SessionID)
	if sessionID == "" {
		return domainerrors.ErrInvalidTallyInput
	}
	report, err := json.Marshal(result.Report)
	if err != nil {
		return r.logError("tally_repo_report_encode_failed", err, "session_id", sessionID)
	}
	row := certifiedResultModel{
		SessionID:   sessionID,
		Report:      report,
		EventID:     strings.TrimSpace(result.EventID),
		CertifiedAt: result.CertifiedAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"report":       row.Report,
			"event_id":     row.EventID,
			"certified_at": row.CertifiedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("tally_repo_save_result_failed", create.Error, "session_id", sessionID)
	}
	return nil
}

func (r *Repository) GetCertifiedResult(ctx context.Context, sessionID string) (entities.CertifiedResult, error) {
	var row certifiedResultModel
	err := r.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.CertifiedResult{}, domainerrors.ErrResultNotCertified
		}
		return entities.CertifiedResult{}, r.logError("tally_repo_get_result_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	var report entities.ScrutinyReport
	if err := json.Unmarshal(row.Report, &report); err != nil {
		return entities.CertifiedResult{}, r.logError("tally_repo_report_decode_failed", err,
			"session_id", row.SessionID,
		)
	}
	return entities.CertifiedResult{
		SessionID:   row.SessionID,
		Report:      report,
		EventID:     row.EventID,
		CertifiedAt: row.CertifiedAt.UTC(),
	}, nil
}

func (r *Repository) ReserveEvent(ctx context.Context, eventID string) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("tally_repo_reserve_event_failed", create.Error,
			"event_id", row.EventID,
		)
	}
	return create.RowsAffected == 0, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "election-core/tally-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("tally repository operation failed", fields...)
	return err
}

type certifiedResultModel struct {
	SessionID   string    `gorm:"column:session_id;primaryKey"`
	Report      []byte    `gorm:"column:report"`
	EventID     string    `gorm:"column:event_id"`
	CertifiedAt time.Time `gorm:"column:certified_at"`
}

func (certifiedResultModel) TableName() string {
	return "certified_results"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "tally_event_dedup"
}

var _ ports.ResultStore = (*Repository)(nil)
var _ ports.EventDedupStore = (*Repository)(nil)
