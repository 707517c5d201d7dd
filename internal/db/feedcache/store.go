package feedcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"Feedsync/internal/core/feeds"
)

const itemColumns = `
	item_id, item_uuid, owner_id, owner_nickname, owner_profile_image,
	created_at, updated_at, body_text, images, writer_mood,
	happy_count, sad_count, angry_count, surprised_count, selected_reaction,
	is_anonymous, is_modified, is_opened, is_owned_by_viewer`

// Store is one feed partition of the feed_items table.
// Transactions run on db; plain reads run on reader, which is db unless WithReader set it.
type Store struct {
	db       *sql.DB
	reader   *sql.DB
	notifier *feeds.Notifier
	logger   *slog.Logger
	dialect  Dialect
	feed     feeds.Kind
}

// New creates the cache adapter for feed.
// If logger is nil, uses slog.Default().
func New(db *sql.DB, dialect Dialect, feed feeds.Kind, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:       db,
		reader:   db,
		dialect:  dialect,
		feed:     feed,
		notifier: feeds.NewNotifier(),
		logger:   logger.With("feed", string(feed), "backend", dialect.Name),
	}
}

// WithReader sends List, GetByID, LastItem and Count to reader. reader must see every
// transaction committed on the write pool once it returns. A nil reader is ignored.
func (s *Store) WithReader(reader *sql.DB) *Store {
	if reader != nil {
		s.reader = reader
	}
	return s
}

// Feed implements feeds.CacheStore
func (s *Store) Feed() feeds.Kind {
	return s.feed
}

// Subscribe implements feeds.CacheStore
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	return s.notifier.Subscribe()
}

// Subscribers returns the number of open live queries on the partition
func (s *Store) Subscribers() int {
	return s.notifier.Subscribers()
}

// RunInTx implements feeds.CacheStore.
// Subscribers are signalled after a commit that changed rows.
func (s *Store) RunInTx(ctx context.Context, fn func(tx feeds.CacheTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.Error("failed to rollback transaction", "error", rollbackErr)
		}
	}()

	if s.dialect.LockPartition != "" {
		if _, err := tx.ExecContext(ctx, s.dialect.Rebind(s.dialect.LockPartition), string(s.feed)); err != nil {
			return fmt.Errorf("failed to lock partition: %w", err)
		}
	}

	w := &cacheTx{store: s, tx: tx}
	if err := fn(w); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		// A cancelled context rolls the transaction back underneath us
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if w.changed {
		s.notifier.Notify()
	}
	return nil
}

// List implements feeds.CacheStore
func (s *Store) List(ctx context.Context, limit int, before *int64) ([]feeds.FeedItem, error) {
	var (
		query strings.Builder
		args  = []any{string(s.feed)}
	)
	query.WriteString("SELECT" + itemColumns + "\n\tFROM feed_items WHERE feed = ?")
	if before != nil {
		query.WriteString(" AND item_id < ?")
		args = append(args, *before)
	}
	query.WriteString(" ORDER BY item_id DESC")
	if limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := s.reader.QueryContext(ctx, s.dialect.Rebind(query.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list feed items: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Error("failed to close rows", "error", closeErr)
		}
	}()

	var items []feeds.FeedItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feed items: %w", err)
	}
	return items, nil
}

// GetByID implements feeds.CacheStore
func (s *Store) GetByID(ctx context.Context, itemID int64) (*feeds.FeedItem, error) {
	query := "SELECT" + itemColumns + "\n\tFROM feed_items WHERE feed = ? AND item_id = ?"
	return getOne(s.reader.QueryRowContext(ctx, s.dialect.Rebind(query), string(s.feed), itemID))
}

// LastItem implements feeds.CacheStore
func (s *Store) LastItem(ctx context.Context) (*feeds.FeedItem, error) {
	query := "SELECT" + itemColumns + "\n\tFROM feed_items WHERE feed = ? ORDER BY item_id ASC LIMIT 1"
	return getOne(s.reader.QueryRowContext(ctx, s.dialect.Rebind(query), string(s.feed)))
}

// Count returns the number of rows in the partition
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.reader.QueryRowContext(ctx, s.dialect.Rebind("SELECT COUNT(*) FROM feed_items WHERE feed = ?"), string(s.feed)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count feed items: %w", err)
	}
	return n, nil
}

type cacheTx struct {
	store   *Store
	tx      *sql.Tx
	changed bool
}

func (t *cacheTx) GetByID(ctx context.Context, itemID int64) (*feeds.FeedItem, error) {
	query := "SELECT" + itemColumns + "\n\tFROM feed_items WHERE feed = ? AND item_id = ?" + t.store.dialect.ForUpdate
	return getOne(t.tx.QueryRowContext(ctx, t.store.dialect.Rebind(query), string(t.store.feed), itemID))
}

// UpsertMany inserts or replaces every item by item id
func (t *cacheTx) UpsertMany(ctx context.Context, items []feeds.FeedItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO feed_items (
			feed, item_id, item_uuid, owner_id, owner_nickname, owner_profile_image,
			created_at, updated_at, body_text, images, writer_mood,
			happy_count, sad_count, angry_count, surprised_count, selected_reaction,
			is_anonymous, is_modified, is_opened, is_owned_by_viewer
		) VALUES (
			?, ?, ?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?
		)
		ON CONFLICT (feed, item_id) DO UPDATE SET
			item_uuid = excluded.item_uuid,
			owner_id = excluded.owner_id,
			owner_nickname = excluded.owner_nickname,
			owner_profile_image = excluded.owner_profile_image,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			body_text = excluded.body_text,
			images = excluded.images,
			writer_mood = excluded.writer_mood,
			happy_count = excluded.happy_count,
			sad_count = excluded.sad_count,
			angry_count = excluded.angry_count,
			surprised_count = excluded.surprised_count,
			selected_reaction = excluded.selected_reaction,
			is_anonymous = excluded.is_anonymous,
			is_modified = excluded.is_modified,
			is_opened = excluded.is_opened,
			is_owned_by_viewer = excluded.is_owned_by_viewer
	`

	stmt, err := t.tx.PrepareContext(ctx, t.store.dialect.Rebind(query))
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range items {
		item := &items[i]
		images, err := encodeImages(item.Images)
		if err != nil {
			return fmt.Errorf("item %d: %w", item.ItemID, err)
		}
		_, err = stmt.ExecContext(ctx,
			string(t.store.feed), item.ItemID, item.ItemUUID, item.OwnerID, item.OwnerNickname, item.OwnerProfileImage,
			item.CreatedAt.UTC(), item.UpdatedAt.UTC(), item.BodyText, images, string(item.WriterMood),
			item.Reactions.Count(feeds.MoodHappy), item.Reactions.Count(feeds.MoodSad),
			item.Reactions.Count(feeds.MoodAngry), item.Reactions.Count(feeds.MoodSurprised),
			selectedValue(item.Reactions.Selected),
			item.IsAnonymous, item.IsModified, item.IsOpened, item.IsOwnedByViewer,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert item %d: %w", item.ItemID, err)
		}
	}

	t.changed = true
	return nil
}

// Update writes the reaction fields of an existing item.
// Returns feeds.ErrItemNotFound when the row is gone.
func (t *cacheTx) Update(ctx context.Context, item *feeds.FeedItem) error {
	if err := item.Reactions.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE feed_items SET
			happy_count = ?,
			sad_count = ?,
			angry_count = ?,
			surprised_count = ?,
			selected_reaction = ?
		WHERE feed = ? AND item_id = ?
	`
	result, err := t.tx.ExecContext(ctx, t.store.dialect.Rebind(query),
		item.Reactions.Count(feeds.MoodHappy), item.Reactions.Count(feeds.MoodSad),
		item.Reactions.Count(feeds.MoodAngry), item.Reactions.Count(feeds.MoodSurprised),
		selectedValue(item.Reactions.Selected),
		string(t.store.feed), item.ItemID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item %d: %w", item.ItemID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return feeds.ErrItemNotFound
	}

	t.changed = true
	return nil
}

func (t *cacheTx) DeleteAll(ctx context.Context) (int64, error) {
	return t.exec(ctx, "DELETE FROM feed_items WHERE feed = ?", string(t.store.feed))
}

func (t *cacheTx) DeleteByOwner(ctx context.Context, ownerID int64) (int64, error) {
	return t.exec(ctx, "DELETE FROM feed_items WHERE feed = ? AND owner_id = ?", string(t.store.feed), ownerID)
}

func (t *cacheTx) exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := t.tx.ExecContext(ctx, t.store.dialect.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete feed items: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected > 0 {
		t.changed = true
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func getOne(row rowScanner) (*feeds.FeedItem, error) {
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, feeds.ErrItemNotFound
	}
	return item, err
}

func scanItem(row rowScanner) (*feeds.FeedItem, error) {
	var (
		item                         feeds.FeedItem
		images                       string
		writerMood                   string
		happy, sad, angry, surprised int
		selected                     sql.NullString
	)

	err := row.Scan(
		&item.ItemID, &item.ItemUUID, &item.OwnerID, &item.OwnerNickname, &item.OwnerProfileImage,
		&item.CreatedAt, &item.UpdatedAt, &item.BodyText, &images, &writerMood,
		&happy, &sad, &angry, &surprised, &selected,
		&item.IsAnonymous, &item.IsModified, &item.IsOpened, &item.IsOwnedByViewer,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan feed item: %w", err)
	}

	if images != "" {
		if err := json.Unmarshal([]byte(images), &item.Images); err != nil {
			return nil, fmt.Errorf("item %d: failed to decode images: %w", item.ItemID, err)
		}
	}
	item.WriterMood = feeds.Mood(writerMood)

	var sel *feeds.Mood
	if selected.Valid {
		m := feeds.Mood(selected.String)
		sel = &m
	}
	item.Reactions = feeds.NewReactions(map[feeds.Mood]int{
		feeds.MoodHappy:     happy,
		feeds.MoodSad:       sad,
		feeds.MoodAngry:     angry,
		feeds.MoodSurprised: surprised,
	}, sel)

	return &item, nil
}

func encodeImages(images []string) (string, error) {
	if len(images) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(images)
	if err != nil {
		return "", fmt.Errorf("failed to encode images: %w", err)
	}
	return string(b), nil
}

func selectedValue(m *feeds.Mood) sql.NullString {
	if m == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*m), Valid: true}
}
