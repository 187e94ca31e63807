package repositories

import (
	"context"
	"fmt"

	"github.com/catalog-approvals/backend/internal/db"
	"github.com/catalog-approvals/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const categoryColumns = `id, name, parent_id, level, description, sort_order, is_active, created_at, updated_at`

type CategoryRepo struct {
	pool *pgxpool.Pool
}

func NewCategoryRepo(pool *pgxpool.Pool) *CategoryRepo {
	return &CategoryRepo{pool: pool}
}

func scanCategory(row pgx.Row) (*models.Category, error) {
	var c models.Category
	err := row.Scan(&c.ID, &c.Name, &c.ParentID, &c.Level, &c.Description, &c.SortOrder, &c.IsActive,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns the whole tree ordered by level, then sort order. Inactive
// categories are skipped unless includeInactive is set.
func (r *CategoryRepo) List(ctx context.Context, includeInactive bool) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if !includeInactive {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY level, sort_order, name`

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, translate("list categories", err, "categories")
	}
	defer rows.Close()

	list := make([]models.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, translate("scan category", err, "category")
		}
		list = append(list, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list categories", err, "categories")
	}
	return list, nil
}

func (r *CategoryRepo) GetByID(ctx context.Context, id int64) (*models.Category, error) {
	c, err := scanCategory(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, translate("get category", err, fmt.Sprintf("category %d", id))
	}
	return c, nil
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (r *CategoryRepo) GetForUpdate(ctx context.Context, id int64) (*models.Category, error) {
	c, err := scanCategory(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, translate("lock category", err, fmt.Sprintf("category %d", id))
	}
	return c, nil
}

func (r *CategoryRepo) Create(ctx context.Context, in models.CategoryInput) (*models.Category, error) {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	c, err := scanCategory(db.Conn(ctx, r.pool).QueryRow(ctx,
		`INSERT INTO categories (name, parent_id, level, description, sort_order, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+categoryColumns,
		in.Name, in.ParentID, in.Level, in.Description, in.SortOrder, active))
	if err != nil {
		return nil, translate("insert category", err, "category")
	}
	return c, nil
}

// Update rewrites every writable column. A nil IsActive keeps the current flag.
func (r *CategoryRepo) Update(ctx context.Context, id int64, in models.CategoryInput) (*models.Category, error) {
	c, err := scanCategory(db.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE categories
		 SET name = $2, parent_id = $3, level = $4, description = $5, sort_order = $6,
		     is_active = COALESCE($7, is_active), updated_at = now()
		 WHERE id = $1 RETURNING `+categoryColumns,
		id, in.Name, in.ParentID, in.Level, in.Description, in.SortOrder, in.IsActive))
	if err != nil {
		return nil, translate("update category", err, fmt.Sprintf("category %d", id))
	}
	return c, nil
}

func (r *CategoryRepo) SetActive(ctx context.Context, id int64, active bool) (*models.Category, error) {
	c, err := scanCategory(db.Conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE categories SET is_active = $2, updated_at = now() WHERE id = $1 RETURNING `+categoryColumns,
		id, active))
	if err != nil {
		return nil, translate("toggle category", err, fmt.Sprintf("category %d", id))
	}
	return c, nil
}

func (r *CategoryRepo) Delete(ctx context.Context, id int64) (*models.Category, error) {
	c, err := scanCategory(db.Conn(ctx, r.pool).QueryRow(ctx,
		`DELETE FROM categories WHERE id = $1 RETURNING `+categoryColumns, id))
	if err != nil {
		return nil, translate("delete category", err, fmt.Sprintf("category %d", id))
	}
	return c, nil
}

func (r *CategoryRepo) CountChildren(ctx context.Context, id int64) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id).Scan(&n)
	if err != nil {
		return 0, translate("count child categories", err, "categories")
	}
	return n, nil
}

// CountProductsUsing counts products whose level_N_category column holds name.
func (r *CategoryRepo) CountProductsUsing(ctx context.Context, level int, name string) (int, error) {
	col := models.ProductColumnForLevel(level)
	if col == "" {
		return 0, nil
	}
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM products WHERE %s = $1`, col), name).Scan(&n)
	if err != nil {
		return 0, translate("count category products", err, "products")
	}
	return n, nil
}
