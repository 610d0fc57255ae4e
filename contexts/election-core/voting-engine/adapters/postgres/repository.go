package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	registryentities "scrutin/contexts/election-core/elector-registry/domain/entities"
	registryerrors "scrutin/contexts/election-core/elector-registry/domain/errors"
	registryports "scrutin/contexts/election-core/elector-registry/ports"
	"scrutin/contexts/election-core/voting-engine/domain/entities"
	domainerrors "scrutin/contexts/election-core/voting-engine/domain/errors"
	"scrutin/contexts/election-core/voting-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// Repository is the postgres election ledger. Electoral roll, sessions, urn,
// and outbox live in one database so RecordCast and ResetSession can run as
// single transactions.
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

func (r *Repository) SaveElector(ctx context.Context, elector registryentities.Elector) error {
	row := electorModelFromEntity(elector)
	if row.ID == "" {
		return registryerrors.ErrInvalidElectorInput
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"display_name":      row.DisplayName,
			"voting_code":       row.VotingCode,
			"voted_session_id":  row.VotedSessionID,
			"verification_hash": row.VerificationHash,
			"has_voted":         row.HasVoted,
			"voted_at":          row.VotedAt,
			"updated_at":        row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return registryerrors.ErrCodeIssuance
		}
		return r.logError("election_repo_save_elector_failed", create.Error,
			"elector_id", row.ID,
		)
	}
	return nil
}

func (r *Repository) GetElector(ctx context.Context, electorID string) (registryentities.Elector, error) {
	var row electorModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(electorID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return registryentities.Elector{}, registryerrors.ErrElectorNotFound
		}
		return registryentities.Elector{}, r.logError("election_repo_get_elector_failed", err,
			"elector_id", strings.TrimSpace(electorID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListElectors(ctx context.Context) ([]registryentities.Elector, error) {
	var rows []electorModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_electors_failed", err)
	}
	items := make([]registryentities.Elector, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) MarkVoted(ctx context.Context, electorID string, sessionID string, votedAt time.Time) error {
	return r.markVoted(r.db.WithContext(ctx), electorID, sessionID, votedAt)
}

func (r *Repository) CountVoted(ctx context.Context) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&electorModel{}).
		Where("has_voted = ?", true).
		Count(&count).Error; err != nil {
		return 0, r.logError("election_repo_count_voted_failed", err)
	}
	return int(count), nil
}

func (r *Repository) HasVerificationHash(ctx context.Context, hash string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&electorModel{}).
		Where("verification_hash = ?", strings.TrimSpace(hash)).
		Count(&count).Error; err != nil {
		return false, r.logError("election_repo_has_verification_hash_failed", err)
	}
	return count > 0, nil
}

func (r *Repository) SaveSession(ctx context.Context, session entities.VotingSession) error {
	row, err := sessionModelFromEntity(session)
	if err != nil {
		return r.logError("election_repo_session_encode_failed", err,
			"session_id", strings.TrimSpace(session.SessionID),
		)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":       row.Name,
			"options":    row.Options,
			"status":     row.Status,
			"opens_at":   row.OpensAt,
			"ends_at":    row.EndsAt,
			"closed_at":  row.ClosedAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("election_repo_save_session_failed", create.Error,
			"session_id", row.ID,
		)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, sessionID string) (entities.VotingSession, error) {
	var row sessionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(sessionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VotingSession{}, domainerrors.ErrSessionNotFound
		}
		return entities.VotingSession{}, r.logError("election_repo_get_session_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListSessions(ctx context.Context) ([]entities.VotingSession, error) {
	var rows []sessionModel
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_sessions_failed", err)
	}
	return toSessionEntities(rows)
}

func (r *Repository) ListExpiredOpenSessions(ctx context.Context, now time.Time) ([]entities.VotingSession, error) {
	var rows []sessionModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(entities.SessionStatusOpen)).
		Where("ends_at IS NOT NULL AND ends_at < ?", now.UTC()).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_expired_sessions_failed", err)
	}
	return toSessionEntities(rows)
}

func (r *Repository) Snapshot(ctx context.Context, sessionID string) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_snapshot_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) CountBallots(ctx context.Context, sessionID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ballotModel{}).
		Where("session_id = ?", strings.TrimSpace(sessionID)).
		Count(&count).Error; err != nil {
		return 0, r.logError("election_repo_count_ballots_failed", err,
			"session_id", strings.TrimSpace(sessionID),
		)
	}
	return int(count), nil
}

// RecordCast commits a cast in one transaction: the has-voted flip is a
// conditional update guarded on has_voted = false, so under concurrent casts
// for one elector exactly one transaction flips the flag and the rest abort
// with ErrAlreadyVoted before the urn or outbox is touched.
func (r *Repository) RecordCast(
	ctx context.Context,
	electorID string,
	ballot entities.Ballot,
	event ports.EventEnvelope,
) (entities.Ballot, error) {
	electorID = strings.TrimSpace(electorID)
	recorded := ballot

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.markVoted(tx, electorID, ballot.SessionID, ballot.RecordedAt); err != nil {
			switch {
			case errors.Is(err, registryerrors.ErrElectorNotFound):
				return domainerrors.ErrIneligibleElector
			case errors.Is(err, registryerrors.ErrAlreadyVoted):
				return domainerrors.ErrAlreadyVoted
			}
			return err
		}

		var ballotCount int64
		if err := tx.Model(&ballotModel{}).
			Where("session_id = ?", strings.TrimSpace(ballot.SessionID)).
			Count(&ballotCount).Error; err != nil {
			return err
		}
		recorded.Position = int(ballotCount) + 1

		row := ballotModelFromEntity(recorded)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrConflict
			}
			return err
		}
		return appendOutboxTx(tx, event)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyVoted) ||
			errors.Is(err, domainerrors.ErrIneligibleElector) ||
			errors.Is(err, domainerrors.ErrConflict) {
			return entities.Ballot{}, err
		}
		return entities.Ballot{}, r.logError("election_repo_record_cast_failed", err,
			"session_id", strings.TrimSpace(ballot.SessionID),
		)
	}
	return recorded, nil
}

// ResetSession empties the session's urn and restores the has-voted flags
// this session consumed, in one transaction. Electors who voted in another
// session keep their flag.
func (r *Repository) ResetSession(ctx context.Context, sessionID string, resetAt time.Time) error {
	sessionID = strings.TrimSpace(sessionID)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("session_id = ?", sessionID).
			Delete(&ballotModel{}).Error; err != nil {
			return err
		}
		return tx.Model(&electorModel{}).
			Where("has_voted = ?", true).
			Where("voted_session_id = ?", sessionID).
			Updates(map[string]any{
				"has_voted":        false,
				"voted_session_id": "",
				"voted_at":         nil,
				"updated_at":       resetAt.UTC(),
			}).Error
	})
	if err != nil {
		return r.logError("election_repo_reset_session_failed", err,
			"session_id", sessionID,
		)
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	if err := appendOutboxTx(r.db.WithContext(ctx), envelope); err != nil {
		return r.logError("election_repo_append_outbox_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("election_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("election_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) markVoted(tx *gorm.DB, electorID string, sessionID string, votedAt time.Time) error {
	electorID = strings.TrimSpace(electorID)
	at := votedAt.UTC()
	update := tx.Model(&electorModel{}).
		Where("id = ?", electorID).
		Where("has_voted = ?", false).
		Updates(map[string]any{
			"has_voted":        true,
			"voted_session_id": strings.TrimSpace(sessionID),
			"voted_at":         at,
			"updated_at":       at,
		})
	if update.Error != nil {
		return update.Error
	}
	if update.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&electorModel{}).
		Where("id = ?", electorID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return registryerrors.ErrElectorNotFound
	}
	return registryerrors.ErrAlreadyVoted
}

func appendOutboxTx(tx *gorm.DB, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return create.Error
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "election-core/voting-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("election repository operation failed", fields...)
	return err
}

type electorModel struct {
	ID               string     `gorm:"column:id;primaryKey"`
	DisplayName      string     `gorm:"column:display_name"`
	VotingCode       string     `gorm:"column:voting_code"`
	VerificationHash string     `gorm:"column:verification_hash"`
	HasVoted         bool       `gorm:"column:has_voted"`
	VotedSessionID   string     `gorm:"column:voted_session_id"`
	VotedAt          *time.Time `gorm:"column:voted_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (electorModel) TableName() string {
	return "electors"
}

func electorModelFromEntity(elector registryentities.Elector) electorModel {
	row := electorModel{
		ID:               strings.TrimSpace(elector.ElectorID),
		DisplayName:      strings.TrimSpace(elector.DisplayName),
		VotingCode:       strings.TrimSpace(elector.VotingCode),
		VerificationHash: strings.TrimSpace(elector.VerificationHash),
		HasVoted:         elector.HasVoted,
		VotedSessionID:   strings.TrimSpace(elector.VotedSessionID),
		VotedAt:          normalizeOptionalTime(elector.VotedAt),
		CreatedAt:        elector.CreatedAt.UTC(),
		UpdatedAt:        elector.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m electorModel) toEntity() registryentities.Elector {
	return registryentities.Elector{
		ElectorID:        m.ID,
		DisplayName:      m.DisplayName,
		VotingCode:       m.VotingCode,
		VerificationHash: m.VerificationHash,
		HasVoted:         m.HasVoted,
		VotedSessionID:   m.VotedSessionID,
		VotedAt:          normalizeOptionalTime(m.VotedAt),
		CreatedAt:        m.CreatedAt.UTC(),
		UpdatedAt:        m.UpdatedAt.UTC(),
	}
}

type sessionModel struct {
	ID        string     `gorm:"column:id;primaryKey"`
	Name      string     `gorm:"column:name"`
	Options   string     `gorm:"column:options"`
	Status    string     `gorm:"column:status"`
	OpensAt   time.Time  `gorm:"column:opens_at"`
	EndsAt    *time.Time `gorm:"column:ends_at"`
	ClosedAt  *time.Time `gorm:"column:closed_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (sessionModel) TableName() string {
	return "voting_sessions"
}

func sessionModelFromEntity(session entities.VotingSession) (sessionModel, error) {
	options, err := json.Marshal(session.Options)
	if err != nil {
		return sessionModel{}, err
	}
	row := sessionModel{
		ID:        strings.TrimSpace(session.SessionID),
		Name:      strings.TrimSpace(session.Name),
		Options:   string(options),
		Status:    string(session.Status),
		OpensAt:   session.OpensAt.UTC(),
		EndsAt:    normalizeOptionalTime(session.EndsAt),
		ClosedAt:  normalizeOptionalTime(session.ClosedAt),
		CreatedAt: session.CreatedAt.UTC(),
		UpdatedAt: session.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row, nil
}

func (m sessionModel) toEntity() (entities.VotingSession, error) {
	var options []string
	if strings.TrimSpace(m.Options) != "" {
		if err := json.Unmarshal([]byte(m.Options), &options); err != nil {
			return entities.VotingSession{}, err
		}
	}
	return entities.VotingSession{
		SessionID: m.ID,
		Name:      m.Name,
		Options:   options,
		Status:    entities.SessionStatus(m.Status),
		OpensAt:   m.OpensAt.UTC(),
		EndsAt:    normalizeOptionalTime(m.EndsAt),
		ClosedAt:  normalizeOptionalTime(m.ClosedAt),
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}, nil
}

func toSessionEntities(rows []sessionModel) ([]entities.VotingSession, error) {
	items := make([]entities.VotingSession, 0, len(rows))
	for _, row := range rows {
		session, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, session)
	}
	return items, nil
}

type ballotModel struct {
	ID              string    `gorm:"column:id;primaryKey"`
	SessionID       string    `gorm:"column:session_id"`
	Position        int       `gorm:"column:position"`
	SealedPayload   string    `gorm:"column:sealed_payload"`
	SealedSignature string    `gorm:"column:sealed_signature"`
	RecordedAt      time.Time `gorm:"column:recorded_at"`
}

func (ballotModel) TableName() string {
	return "ballots"
}

func ballotModelFromEntity(ballot entities.Ballot) ballotModel {
	return ballotModel{
		ID:              strings.TrimSpace(ballot.BallotID),
		SessionID:       strings.TrimSpace(ballot.SessionID),
		Position:        ballot.Position,
		SealedPayload:   ballot.SealedPayload,
		SealedSignature: ballot.SealedSignature,
		RecordedAt:      ballot.RecordedAt.UTC(),
	}
}

func (m ballotModel) toEntity() entities.Ballot {
	return entities.Ballot{
		BallotID:        m.ID,
		SessionID:       m.SessionID,
		Position:        m.Position,
		SealedPayload:   m.SealedPayload,
		SealedSignature: m.SealedSignature,
		RecordedAt:      m.RecordedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "election_outbox"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ registryports.ElectorRepository = (*Repository)(nil)
var _ ports.SessionRepository = (*Repository)(nil)
var _ ports.BallotStore = (*Repository)(nil)
var _ ports.CastLedger = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
