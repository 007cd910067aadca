package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// walJournalSizeLimit caps the WAL file at 64 MiB.
const walJournalSizeLimit = 67108864

// Store implements the persistence layer over an embedded SQLite database
// with WAL mode. Each logical write runs in its own short transaction so
// a mid-run crash leaves the archive consistent and resumable, and so the
// web layer can read concurrently while a sync is active.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	// Prepared statements for repeated queries, grouped by domain.
	albumStmts   albumStatements
	photoStmts   photoStatements
	linkStmts    linkStatements
	commentStmts commentStatements
}

type albumStatements struct {
	upsert, list *sql.Stmt
}

type photoStatements struct {
	upsert, idSet, get *sql.Stmt
}

type linkStatements struct {
	insert, has, albumsForPhoto *sql.Stmt
}

type commentStatements struct {
	upsert, forPhoto *sql.Stmt
}

// NewStore opens the database at dbPath, applies migrations, and prepares
// all repeated statements. Use ":memory:" for tests.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening archive database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("archive: open sqlite: %w", err)
	}

	// The modernc driver serializes access per connection; a single
	// connection keeps the in-memory database stable across pool reuse.
	db.SetMaxOpenConns(1)

	if err := setPragmas(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, logger: logger}

	if err := s.prepareAllStatements(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: prepare statements: %w", err)
	}

	logger.Info("archive database ready", "path", dbPath)

	return s, nil
}

// setPragmas configures SQLite for WAL mode and referential integrity.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = NORMAL", "synchronous NORMAL"},
		{"PRAGMA foreign_keys = ON", "foreign keys"},
		{fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit), "journal size limit"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.sql); err != nil {
			return fmt.Errorf("archive: set pragma %s: %w", p.desc, err)
		}
	}

	return nil
}

// --- SQL query constants ---

// Album queries.
const (
	sqlUpsertAlbum = `INSERT OR REPLACE INTO albums
		(id, title, description, photo_count, created_date, updated_date)
		VALUES (?, ?, ?, ?, ?, ?)`

	// Live photo counts come from the junction table; the stored
	// photo_count column is remote-reported and advisory only.
	sqlListAlbums = `SELECT a.id, a.title, a.description,
			COALESCE(pa.n, 0) AS photo_count
		FROM albums a
		LEFT JOIN (
			SELECT album_id, COUNT(*) AS n
			FROM photo_albums
			GROUP BY album_id
		) pa ON a.id = pa.album_id
		ORDER BY a.title`
)

// Photo queries.
const (
	sqlPhotoColumns = `id, title, description, filename, thumbnail_path,
		date_taken, date_uploaded, views, tags, url_original, url_thumbnail`

	sqlUpsertPhoto = `INSERT OR REPLACE INTO photos (` + sqlPhotoColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlPhotoIDSet = `SELECT id FROM photos`

	sqlGetPhoto = `SELECT ` + sqlPhotoColumns + ` FROM photos WHERE id = ?`
)

// Link queries.
const (
	sqlInsertLink = `INSERT OR IGNORE INTO photo_albums
		(photo_id, album_id, is_primary, date_added)
		VALUES (?, ?, ?, ?)`

	sqlHasLink = `SELECT 1 FROM photo_albums WHERE photo_id = ? AND album_id = ?`

	sqlAlbumsForPhoto = `SELECT DISTINCT a.id, a.title
		FROM albums a
		JOIN photo_albums pa ON a.id = pa.album_id
		WHERE pa.photo_id = ?
		ORDER BY a.title`
)

// Comment queries.
const (
	sqlUpsertComment = `INSERT OR REPLACE INTO comments
		(id, photo_id, author, comment, date_created)
		VALUES (?, ?, ?, ?, ?)`

	sqlCommentsForPhoto = `SELECT id, photo_id, author, comment, date_created
		FROM comments WHERE photo_id = ? ORDER BY date_created`
)

// stmtDef maps a SQL string to the prepared statement pointer it should
// populate. Used by the prepare helper to eliminate repetitive error
// handling.
type stmtDef struct {
	dest **sql.Stmt
	sql  string
	name string
}

// prepareAll prepares a batch of statements, returning on first error.
func prepareAll(ctx context.Context, db *sql.DB, defs []stmtDef) error {
	for i := range defs {
		stmt, err := db.PrepareContext(ctx, defs[i].sql)
		if err != nil {
			return fmt.Errorf("prepare %s: %w", defs[i].name, err)
		}

		*defs[i].dest = stmt
	}

	return nil
}

func (s *Store) prepareAllStatements(ctx context.Context) error {
	return prepareAll(ctx, s.db, []stmtDef{
		{&s.albumStmts.upsert, sqlUpsertAlbum, "upsertAlbum"},
		{&s.albumStmts.list, sqlListAlbums, "listAlbums"},
		{&s.photoStmts.upsert, sqlUpsertPhoto, "upsertPhoto"},
		{&s.photoStmts.idSet, sqlPhotoIDSet, "photoIDSet"},
		{&s.photoStmts.get, sqlGetPhoto, "getPhoto"},
		{&s.linkStmts.insert, sqlInsertLink, "insertLink"},
		{&s.linkStmts.has, sqlHasLink, "hasLink"},
		{&s.linkStmts.albumsForPhoto, sqlAlbumsForPhoto, "albumsForPhoto"},
		{&s.commentStmts.upsert, sqlUpsertComment, "upsertComment"},
		{&s.commentStmts.forPhoto, sqlCommentsForPhoto, "commentsForPhoto"},
	})
}

// --- Write methods ---

// UpsertAlbum inserts or replaces an album row. Albums are refreshed on
// every sweep that visits them and never deleted by the sync engine.
func (s *Store) UpsertAlbum(ctx context.Context, album *AlbumRecord) error {
	s.logger.Debug("upserting album", "album_id", album.ID, "title", album.Title)

	_, err := s.albumStmts.upsert.ExecContext(ctx,
		album.ID, album.Title, album.Description, album.PhotoCount,
		album.CreatedDate, album.UpdatedDate,
	)
	if err != nil {
		return fmt.Errorf("archive: upsert album %s: %w", album.ID, err)
	}

	return nil
}

// UpsertPhoto inserts or replaces a photo row by id. Last-writer-wins;
// there is no field-level merge.
func (s *Store) UpsertPhoto(ctx context.Context, photo *PhotoRecord) error {
	s.logger.Debug("upserting photo", "photo_id", photo.ID, "title", photo.Title)

	_, err := s.photoStmts.upsert.ExecContext(ctx,
		photo.ID, photo.Title, photo.Description, photo.Filename,
		photo.ThumbnailPath, photo.DateTaken, photo.DateUploaded,
		photo.Views, photo.Tags, photo.URLOriginal, photo.URLThumbnail,
	)
	if err != nil {
		return fmt.Errorf("archive: upsert photo %s: %w", photo.ID, err)
	}

	return nil
}

// InsertLinkIfAbsent inserts a photo-album link unless the pair already
// exists. Re-insertion is a no-op, never an error. The photo row must
// already be committed — the junction table's foreign key enforces it.
func (s *Store) InsertLinkIfAbsent(ctx context.Context, photoID, albumID string, isPrimary bool) error {
	s.logger.Debug("inserting link", "photo_id", photoID, "album_id", albumID)

	primary := 0
	if isPrimary {
		primary = 1
	}

	_, err := s.linkStmts.insert.ExecContext(ctx,
		photoID, albumID, primary, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("archive: insert link %s/%s: %w", photoID, albumID, err)
	}

	return nil
}

// InsertComments replaces the given comments by id in one transaction.
// One photo's comments are a single logical write.
func (s *Store) InsertComments(ctx context.Context, photoID string, comments []CommentRecord) error {
	if len(comments) == 0 {
		return nil
	}

	s.logger.Debug("inserting comments", "photo_id", photoID, "count", len(comments))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive: begin comments tx: %w", err)
	}

	stmt := tx.StmtContext(ctx, s.commentStmts.upsert)

	for i := range comments {
		c := comments[i]
		if _, execErr := stmt.ExecContext(ctx, c.ID, photoID, c.Author, c.Text, c.Date); execErr != nil {
			rollbackErr := tx.Rollback()
			return fmt.Errorf("archive: insert comment %s: %w (rollback: %v)", c.ID, execErr, rollbackErr)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive: commit comments: %w", err)
	}

	return nil
}

// --- Read methods ---

// PhotoIDSet returns the full set of known photo ids. Loaded once per
// sync run to build the existing-state index.
func (s *Store) PhotoIDSet(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.photoStmts.idSet.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: photo id set: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("archive: scan photo id: %w", err)
		}

		ids[id] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate photo ids: %w", err)
	}

	return ids, nil
}

// HasLink reports whether a photo-album link exists. A point query, not
// cached: link existence is checked only for photos already known to
// exist, which is the rare path.
func (s *Store) HasLink(ctx context.Context, photoID, albumID string) (bool, error) {
	var one int

	err := s.linkStmts.has.QueryRowContext(ctx, photoID, albumID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("archive: has link %s/%s: %w", photoID, albumID, err)
	}

	return true, nil
}

// ListAlbums returns all albums with live photo counts.
func (s *Store) ListAlbums(ctx context.Context) ([]AlbumSummary, error) {
	rows, err := s.albumStmts.list.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: list albums: %w", err)
	}
	defer rows.Close()

	var albums []AlbumSummary

	for rows.Next() {
		var a AlbumSummary
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.PhotoCount); err != nil {
			return nil, fmt.Errorf("archive: scan album row: %w", err)
		}

		albums = append(albums, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate album rows: %w", err)
	}

	return albums, nil
}

// PhotoQuery filters SearchPhotos. A zero Limit means unlimited — album
// views always show every photo regardless of album size.
type PhotoQuery struct {
	AlbumID string
	Search  string
	Limit   int
	Offset  int
}

// SearchPhotos returns photos matching the query, newest taken first.
// The search term matches title, description, and tags.
func (s *Store) SearchPhotos(ctx context.Context, q PhotoQuery) ([]PhotoRecord, error) {
	var (
		sb   strings.Builder
		args []any
	)

	if q.AlbumID != "" {
		sb.WriteString(`SELECT ` + sqlPhotoColumns + ` FROM photos
			JOIN photo_albums ON photos.id = photo_albums.photo_id
			WHERE photo_albums.album_id = ?`)
		args = append(args, q.AlbumID)
	} else {
		sb.WriteString(`SELECT ` + sqlPhotoColumns + ` FROM photos WHERE 1=1`)
	}

	if q.Search != "" {
		sb.WriteString(` AND (title LIKE ? OR description LIKE ? OR tags LIKE ?)`)

		pattern := "%" + q.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	sb.WriteString(` ORDER BY date_taken DESC`)

	// SQLite requires a LIMIT clause to accept OFFSET; -1 means unlimited.
	switch {
	case q.Limit > 0:
		sb.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, q.Limit, q.Offset)
	case q.Offset > 0:
		sb.WriteString(` LIMIT -1 OFFSET ?`)
		args = append(args, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("archive: search photos: %w", err)
	}
	defer rows.Close()

	return scanPhotoRows(rows)
}

// GetPhotoDetail returns a photo with its albums and comments.
// Returns (nil, nil) if the photo does not exist.
func (s *Store) GetPhotoDetail(ctx context.Context, photoID string) (*PhotoDetail, error) {
	photo, err := scanPhoto(s.photoStmts.get.QueryRowContext(ctx, photoID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // nil detail means "not found"
	}

	if err != nil {
		return nil, fmt.Errorf("archive: get photo %s: %w", photoID, err)
	}

	detail := &PhotoDetail{PhotoRecord: *photo}

	albumRows, err := s.linkStmts.albumsForPhoto.QueryContext(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("archive: albums for photo %s: %w", photoID, err)
	}
	defer albumRows.Close()

	for albumRows.Next() {
		var ref AlbumRef
		if err := albumRows.Scan(&ref.ID, &ref.Title); err != nil {
			return nil, fmt.Errorf("archive: scan album ref: %w", err)
		}

		detail.Albums = append(detail.Albums, ref)
	}

	if err := albumRows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate album refs: %w", err)
	}

	commentRows, err := s.commentStmts.forPhoto.QueryContext(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("archive: comments for photo %s: %w", photoID, err)
	}
	defer commentRows.Close()

	for commentRows.Next() {
		var c CommentRecord
		if err := commentRows.Scan(&c.ID, &c.PhotoID, &c.Author, &c.Text, &c.Date); err != nil {
			return nil, fmt.Errorf("archive: scan comment row: %w", err)
		}

		detail.Comments = append(detail.Comments, c)
	}

	if err := commentRows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate comment rows: %w", err)
	}

	return detail, nil
}

// Counts returns table row counts for status reporting.
func (s *Store) Counts(ctx context.Context) (*Counts, error) {
	counts := &Counts{}

	queries := []struct {
		sql  string
		dest *int
	}{
		{"SELECT COUNT(*) FROM albums", &counts.Albums},
		{"SELECT COUNT(*) FROM photos", &counts.Photos},
		{"SELECT COUNT(*) FROM photo_albums", &counts.Links},
		{"SELECT COUNT(*) FROM comments", &counts.Comments},
	}

	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("archive: counts: %w", err)
		}
	}

	return counts, nil
}

// --- Scan helpers ---

// scanPhoto scans a full photo row into a PhotoRecord.
func scanPhoto(row interface{ Scan(...any) error }) (*PhotoRecord, error) {
	p := &PhotoRecord{}

	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Filename, &p.ThumbnailPath,
		&p.DateTaken, &p.DateUploaded, &p.Views, &p.Tags,
		&p.URLOriginal, &p.URLThumbnail,
	)
	if err != nil {
		return nil, err
	}

	return p, nil
}

// scanPhotoRows iterates over sql.Rows and collects PhotoRecords.
func scanPhotoRows(rows *sql.Rows) ([]PhotoRecord, error) {
	var photos []PhotoRecord

	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("archive: scan photo row: %w", err)
		}

		photos = append(photos, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: iterate photo rows: %w", err)
	}

	return photos, nil
}

// Close closes all prepared statements and the database connection.
func (s *Store) Close() error {
	s.logger.Info("closing archive database")

	stmts := []*sql.Stmt{
		s.albumStmts.upsert, s.albumStmts.list,
		s.photoStmts.upsert, s.photoStmts.idSet, s.photoStmts.get,
		s.linkStmts.insert, s.linkStmts.has, s.linkStmts.albumsForPhoto,
		s.commentStmts.upsert, s.commentStmts.forPhoto,
	}

	var errs []string

	for _, stmt := range stmts {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				errs = append(errs, err.Error())
			}
		}
	}

	if err := s.db.Close(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("archive: close: %s", strings.Join(errs, "; "))
	}

	return nil
}
