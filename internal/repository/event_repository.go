package repository

import (
	"database/sql"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"

	"liquidator/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Ошибки репозитория событий
var (
	ErrEventNotFound = errors.New("event not found")
)

// EventRepository - работа с таблицей events (журнал событий движка)
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository создает новый экземпляр репозитория
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create создает запись о событии
func (r *EventRepository) Create(event *models.Event) error {
	query := `
		INSERT INTO events (timestamp, type, severity, account, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	metaJSON, err := marshalMeta(event.Meta)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(
		query,
		event.Timestamp,
		event.Type,
		event.Severity,
		event.Account,
		event.Message,
		metaJSON,
	).Scan(&event.ID)

	if err != nil {
		return err
	}

	return nil
}

// GetRecent возвращает последние N событий (новые сверху)
func (r *EventRepository) GetRecent(limit int) ([]*models.Event, error) {
	query := `
		SELECT id, timestamp, type, severity, account, message, meta
		FROM events
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByTypes возвращает события указанных типов
func (r *EventRepository) GetByTypes(types []string, limit int) ([]*models.Event, error) {
	query := `
		SELECT id, timestamp, type, severity, account, message, meta
		FROM events
		WHERE type = ANY($1)
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, pq.Array(types), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByAccount возвращает события по конкретному аккаунту
func (r *EventRepository) GetByAccount(account string, limit int) ([]*models.Event, error) {
	query := `
		SELECT id, timestamp, type, severity, account, message, meta
		FROM events
		WHERE account = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, account, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Count возвращает общее количество событий
func (r *EventRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM events`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// CountByType возвращает количество событий определенного типа
func (r *EventRepository) CountByType(eventType string) (int, error) {
	query := `SELECT COUNT(*) FROM events WHERE type = $1`

	var count int
	err := r.db.QueryRow(query, eventType).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteAll очищает журнал событий
func (r *EventRepository) DeleteAll() error {
	query := `DELETE FROM events`

	_, err := r.db.Exec(query)
	return err
}

// DeleteOlderThan удаляет события старше указанной даты
func (r *EventRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	query := `DELETE FROM events WHERE timestamp < $1`

	result, err := r.db.Exec(query, timestamp)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// KeepRecent удаляет события, оставляя только последние N записей
func (r *EventRepository) KeepRecent(keepCount int) (int64, error) {
	query := `
		DELETE FROM events
		WHERE id NOT IN (
			SELECT id FROM events
			ORDER BY timestamp DESC
			LIMIT $1
		)`

	result, err := r.db.Exec(query, keepCount)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

// marshalMeta сериализует метаданные в JSON для хранения (NULL для пустых)
func marshalMeta(meta map[string]interface{}) (interface{}, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// scanEvents читает строки результата в срез событий
func scanEvents(rows *sql.Rows) ([]*models.Event, error) {
	var events []*models.Event
	for rows.Next() {
		event := &models.Event{}
		var metaJSON []byte
		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&event.Type,
			&event.Severity,
			&event.Account,
			&event.Message,
			&metaJSON,
		)
		if err != nil {
			return nil, err
		}

		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &event.Meta); err != nil {
				return nil, err
			}
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
