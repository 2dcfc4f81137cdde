// Package importer loads the seed CSV tables into an empty database.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"reviewhub/internal/access"
	"reviewhub/internal/api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const batchSize = 500

// Tables in dependency order. Each name is also the CSV file stem.
var Tables = []string{"category", "genre", "titles", "genre_title", "users", "review", "comments"}

// userNamespace derives stable uuids from the integer user ids used in the
// CSV files, so review and comment rows can reference their authors.
var userNamespace = uuid.MustParse("0b6e3d8c-5f0a-4f7e-9a57-2d1c0f2b8e11")

// UserID maps a CSV user id onto the stored uuid.
func UserID(csvID string) string {
	return uuid.NewSHA1(userNamespace, []byte(strings.TrimSpace(csvID))).String()
}

// Dataset is every table parsed from the CSV files.
type Dataset struct {
	Categories  []models.Category
	Genres      []models.Genre
	Titles      []models.Title
	TitleGenres []models.TitleGenre
	Users       []models.User
	Reviews     []models.Review
	Comments    []models.Comment
}

type Summary struct {
	Table string
	Rows  int
}

type Importer struct {
	db     *gorm.DB
	logger *slog.Logger
}

func New(db *gorm.DB, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{db: db, logger: logger}
}

// Run parses every table from fsys and inserts them in one transaction.
// Nothing is written when any file fails to parse or any insert fails.
func (im *Importer) Run(ctx context.Context, fsys fs.FS) ([]Summary, error) {
	data, err := Load(fsys)
	if err != nil {
		return nil, err
	}

	var summary []Summary
	err = im.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps := []struct {
			table string
			rows  int
			write func() error
		}{
			{"categories", len(data.Categories), func() error { return insert(tx, data.Categories) }},
			{"genres", len(data.Genres), func() error { return insert(tx, data.Genres) }},
			{"titles", len(data.Titles), func() error { return insert(tx.Omit("Genres", "Category"), data.Titles) }},
			{"title_genres", len(data.TitleGenres), func() error { return insert(tx.Omit("Title", "Genre"), data.TitleGenres) }},
			{"users", len(data.Users), func() error { return insert(tx, data.Users) }},
			{"reviews", len(data.Reviews), func() error { return insert(tx.Omit("Author", "Title"), data.Reviews) }},
			{"comments", len(data.Comments), func() error { return insert(tx.Omit("Author", "Review"), data.Comments) }},
		}
		for _, step := range steps {
			if err := step.write(); err != nil {
				return fmt.Errorf("import %s: %w", step.table, err)
			}
			im.logger.Info("imported table", "table", step.table, "rows", step.rows)
			summary = append(summary, Summary{Table: step.table, Rows: step.rows})
		}

		// explicit ids leave the serial sequences behind
		for _, table := range []string{"categories", "genres", "titles", "reviews", "comments"} {
			if err := resetSequence(tx, table); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func insert[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(rows, batchSize).Error
}

func resetSequence(tx *gorm.DB, table string) error {
	sql := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)",
		table,
	)
	if err := tx.Exec(sql).Error; err != nil {
		return fmt.Errorf("reset %s id sequence: %w", table, err)
	}
	return nil
}

// Load parses every table. A missing file is an error.
func Load(fsys fs.FS) (*Dataset, error) {
	data := &Dataset{}
	parsers := map[string]func(row) error{
		"category": func(r row) error {
			c, err := parseCatalog(r)
			if err == nil {
				data.Categories = append(data.Categories, models.Category(c))
			}
			return err
		},
		"genre": func(r row) error {
			g, err := parseCatalog(r)
			if err == nil {
				data.Genres = append(data.Genres, g)
			}
			return err
		},
		"titles": func(r row) error {
			t, err := parseTitle(r)
			if err == nil {
				data.Titles = append(data.Titles, t)
			}
			return err
		},
		"genre_title": func(r row) error {
			titleID, err := r.int64Col("title_id")
			if err != nil {
				return err
			}
			genreID, err := r.int64Col("genre_id")
			if err != nil {
				return err
			}
			data.TitleGenres = append(data.TitleGenres, models.TitleGenre{TitleID: titleID, GenreID: genreID})
			return nil
		},
		"users": func(r row) error {
			u, err := parseUser(r)
			if err == nil {
				data.Users = append(data.Users, u)
			}
			return err
		},
		"review": func(r row) error {
			rv, err := parseReview(r)
			if err == nil {
				data.Reviews = append(data.Reviews, rv)
			}
			return err
		},
		"comments": func(r row) error {
			c, err := parseComment(r)
			if err == nil {
				data.Comments = append(data.Comments, c)
			}
			return err
		},
	}

	for _, table := range Tables {
		if err := readTable(fsys, table, parsers[table]); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// row is one CSV record keyed by header name.
type row struct {
	file   string
	line   int
	fields map[string]string
}

func (r row) str(name string) string {
	return strings.TrimSpace(r.fields[name])
}

func (r row) errorf(format string, args ...any) error {
	return fmt.Errorf("%s:%d: %s", r.file, r.line, fmt.Sprintf(format, args...))
}

func (r row) int64Col(name string) (int64, error) {
	v, err := strconv.ParseInt(r.str(name), 10, 64)
	if err != nil {
		return 0, r.errorf("column %s: %v", name, err)
	}
	return v, nil
}

func (r row) intCol(name string) (int, error) {
	v, err := strconv.Atoi(r.str(name))
	if err != nil {
		return 0, r.errorf("column %s: %v", name, err)
	}
	return v, nil
}

func (r row) timeCol(name string) (time.Time, error) {
	v, err := time.Parse(time.RFC3339Nano, r.str(name))
	if err != nil {
		return time.Time{}, r.errorf("column %s: %v", name, err)
	}
	return v, nil
}

func readTable(fsys fs.FS, table string, parse func(row) error) error {
	name := table + ".csv"
	f, err := fsys.Open(name)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read %s header: %w", name, err)
	}
	for i := range header {
		// spreadsheet exports sometimes start with a byte-order mark
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				fields[col] = record[i]
			}
		}
		if err := parse(row{file: name, line: line, fields: fields}); err != nil {
			return err
		}
	}
}

func parseCatalog(r row) (models.Genre, error) {
	id, err := r.int64Col("id")
	if err != nil {
		return models.Genre{}, err
	}
	slug := r.str("slug")
	if !models.ValidSlug(slug) || len(slug) > models.MaxSlugLen {
		return models.Genre{}, r.errorf("invalid slug %q", slug)
	}
	return models.Genre{ID: id, Name: r.str("name"), Slug: slug}, nil
}

func parseTitle(r row) (models.Title, error) {
	id, err := r.int64Col("id")
	if err != nil {
		return models.Title{}, err
	}
	year, err := r.intCol("year")
	if err != nil {
		return models.Title{}, err
	}
	t := models.Title{ID: id, Name: r.str("name"), Year: year, Description: r.str("description")}
	if r.str("category") != "" {
		categoryID, err := r.int64Col("category")
		if err != nil {
			return models.Title{}, err
		}
		t.CategoryID = &categoryID
	}
	return t, nil
}

func parseUser(r row) (models.User, error) {
	id := r.str("id")
	if id == "" {
		return models.User{}, r.errorf("column id is empty")
	}
	username := r.str("username")
	if err := models.ValidateUsername(username); err != nil {
		return models.User{}, r.errorf("username %q: %v", username, err)
	}
	role := models.RoleUser
	if raw := r.str("role"); raw != "" {
		parsed, err := access.ParseRole(raw)
		if err != nil {
			return models.User{}, r.errorf("%v", err)
		}
		role = parsed.String()
	}
	return models.User{
		ID:        UserID(id),
		Username:  username,
		Email:     r.str("email"),
		Role:      role,
		Bio:       r.str("bio"),
		FirstName: r.str("first_name"),
		LastName:  r.str("last_name"),
	}, nil
}

func parseReview(r row) (models.Review, error) {
	id, err := r.int64Col("id")
	if err != nil {
		return models.Review{}, err
	}
	titleID, err := r.int64Col("title_id")
	if err != nil {
		return models.Review{}, err
	}
	score, err := r.intCol("score")
	if err != nil {
		return models.Review{}, err
	}
	if !models.ScoreInRange(score) {
		return models.Review{}, r.errorf("score %d out of range", score)
	}
	pub, err := r.timeCol("pub_date")
	if err != nil {
		return models.Review{}, err
	}
	return models.Review{
		ID:       id,
		TitleID:  titleID,
		AuthorID: UserID(r.str("author")),
		Text:     r.str("text"),
		Score:    score,
		PubDate:  pub,
	}, nil
}

func parseComment(r row) (models.Comment, error) {
	id, err := r.int64Col("id")
	if err != nil {
		return models.Comment{}, err
	}
	reviewID, err := r.int64Col("review_id")
	if err != nil {
		return models.Comment{}, err
	}
	pub, err := r.timeCol("pub_date")
	if err != nil {
		return models.Comment{}, err
	}
	return models.Comment{
		ID:       id,
		ReviewID: reviewID,
		AuthorID: UserID(r.str("author")),
		Text:     r.str("text"),
		PubDate:  pub,
	}, nil
}
