package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

const (
	defaultPageSize = 10
	listValueWidth  = 80
)

// Resource declares a model listed in the admin panel.
type Resource struct {
	// Model is a pointer to a GORM model, e.g. &models.Product{}.
	Model any

	// Name is the URL segment. Default: the table name.
	Name string

	// Label is the display name. Default: the model's type name.
	Label string

	// PageSize is the number of rows per list page. Default: 10.
	PageSize int
}

// Column is a displayed model field. Fields tagged admin:"-" are hidden.
type Column struct {
	Name  string
	Label string
}

type resource struct {
	Name     string
	Label    string
	order    int
	pageSize int
	schema   *schema.Schema
	modelTyp reflect.Type
	columns  []Column
	pk       string
}

type listRow struct {
	ID     string
	Values []string
}

type detailField struct {
	Label string
	Value string
}

type resourceCount struct {
	Name  string
	Label string
	Count int64
}

func buildResources(db *gorm.DB, declared []Resource) (map[string]*resource, error) {
	schemas := &sync.Map{}
	out := make(map[string]*resource, len(declared))

	for i, r := range declared {
		if r.Model == nil {
			return nil, fmt.Errorf("admin: resource %d has no model", i)
		}
		s, err := schema.Parse(r.Model, schemas, db.NamingStrategy)
		if err != nil {
			return nil, fmt.Errorf("admin: parse resource %T: %w", r.Model, err)
		}
		if s.PrioritizedPrimaryField == nil {
			return nil, fmt.Errorf("admin: resource %s has no primary key", s.Name)
		}

		res := &resource{
			Name:     r.Name,
			Label:    r.Label,
			order:    i,
			pageSize: r.PageSize,
			schema:   s,
			modelTyp: s.ModelType,
			pk:       s.PrioritizedPrimaryField.DBName,
		}
		if res.Name == "" {
			res.Name = s.Table
		}
		if res.Label == "" {
			res.Label = s.Name
		}
		if res.pageSize <= 0 {
			res.pageSize = defaultPageSize
		}
		for _, f := range s.Fields {
			if f.DBName == "" || f.Tag.Get("admin") == "-" {
				continue
			}
			res.columns = append(res.columns, Column{Name: f.DBName, Label: f.Name})
		}

		if _, dup := out[res.Name]; dup {
			return nil, fmt.Errorf("admin: duplicate resource %q", res.Name)
		}
		out[res.Name] = res
	}
	return out, nil
}

func (r *resource) newModel() any {
	return reflect.New(r.modelTyp).Interface()
}

func (r *resource) byID(db *gorm.DB, id string) *gorm.DB {
	return db.Where(clause.Eq{Column: clause.Column{Name: r.pk}, Value: id})
}

func (m *Module) registerRoutes() {
	m.app.Get("/", m.RequireAuth, m.dashboard)
	m.app.Get("/:resource/list", m.RequireAuth, m.listResource)
	m.app.Get("/:resource/:id", m.RequireAuth, m.showResource)
	m.app.Post("/:resource/:id/delete", m.RequireAuth, m.deleteResource)
}

func (m *Module) dashboard(c *fiber.Ctx) error {
	db, err := m.DB()
	if err != nil {
		return err
	}

	resources := m.resourceList()
	counts := make([]resourceCount, 0, len(resources))
	for _, r := range resources {
		var n int64
		if err := db.WithContext(c.UserContext()).Model(r.newModel()).Count(&n).Error; err != nil {
			return fmt.Errorf("admin: count %s: %w", r.Name, err)
		}
		counts = append(counts, resourceCount{Name: r.Name, Label: r.Label, Count: n})
	}

	return m.Render(c, fiber.StatusOK, "dashboard", fiber.Map{"Counts": counts})
}

func (m *Module) listResource(c *fiber.Ctx) error {
	r, ok := m.resource(c.Params("resource"))
	if !ok {
		return fiber.ErrNotFound
	}
	db, err := m.DB()
	if err != nil {
		return err
	}
	db = db.WithContext(c.UserContext())

	var total int64
	if err := db.Model(r.newModel()).Count(&total).Error; err != nil {
		return fmt.Errorf("admin: count %s: %w", r.Name, err)
	}

	pages := int(math.Ceil(float64(total) / float64(r.pageSize)))
	if pages < 1 {
		pages = 1
	}
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	var records []map[string]any
	err = db.Model(r.newModel()).
		Order(clause.OrderByColumn{Column: clause.Column{Name: r.pk}, Desc: true}).
		Limit(r.pageSize).
		Offset((page - 1) * r.pageSize).
		Find(&records).Error
	if err != nil {
		return fmt.Errorf("admin: list %s: %w", r.Name, err)
	}

	rows := make([]listRow, 0, len(records))
	for _, rec := range records {
		row := listRow{ID: formatValue(rec[r.pk]), Values: make([]string, 0, len(r.columns))}
		for _, col := range r.columns {
			row.Values = append(row.Values, truncate(formatValue(rec[col.Name]), listValueWidth))
		}
		rows = append(rows, row)
	}

	data := fiber.Map{
		"Resource": r,
		"Columns":  r.columns,
		"Rows":     rows,
		"Total":    total,
		"Page":     page,
		"Pages":    pages,
	}
	if page > 1 {
		data["PrevPage"] = page - 1
	}
	if page < pages {
		data["NextPage"] = page + 1
	}
	return m.Render(c, fiber.StatusOK, "list", data)
}

func (m *Module) showResource(c *fiber.Ctx) error {
	r, ok := m.resource(c.Params("resource"))
	if !ok {
		return fiber.ErrNotFound
	}
	db, err := m.DB()
	if err != nil {
		return err
	}

	id := c.Params("id")
	record := map[string]any{}
	err = r.byID(db.WithContext(c.UserContext()).Model(r.newModel()), id).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("admin: show %s %s: %w", r.Name, id, err)
	}

	fields := make([]detailField, 0, len(r.columns))
	for _, col := range r.columns {
		fields = append(fields, detailField{Label: col.Label, Value: formatValue(record[col.Name])})
	}

	return m.Render(c, fiber.StatusOK, "detail", fiber.Map{
		"Resource": r,
		"ID":       id,
		"Fields":   fields,
	})
}

func (m *Module) deleteResource(c *fiber.Ctx) error {
	r, ok := m.resource(c.Params("resource"))
	if !ok {
		return fiber.ErrNotFound
	}
	db, err := m.DB()
	if err != nil {
		return err
	}
	db = db.WithContext(c.UserContext())

	id := c.Params("id")
	record := r.newModel()
	err = r.byID(db, id).Take(record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("admin: load %s %s: %w", r.Name, id, err)
	}

	// Many-to-many join rows go with the record.
	if err := db.Select(clause.Associations).Delete(record).Error; err != nil {
		return fmt.Errorf("admin: delete %s %s: %w", r.Name, id, err)
	}

	m.logger.Info("record deleted",
		slog.String("resource", r.Name),
		slog.String("id", id),
		slog.String("by", sessionUsername(c)),
	)
	return c.Redirect(m.URL("/"+r.Name+"/list"), fiber.StatusSeeOther)
}

func sessionUsername(c *fiber.Ctx) string {
	if s := SessionFrom(c); s != nil {
		return s.Username
	}
	return ""
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case *time.Time:
		if val == nil {
			return "-"
		}
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:width])) + "…"
}
