package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/skladsync/skladsync/internal/db"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

func pagination(c *gin.Context) (limit, offset int) {
	limit = defaultPageLimit
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if v, err := strconv.Atoi(c.Query("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// ordering maps an "ordering" query param ("price", "-created_at", ...) to an
// ORDER BY clause, restricted to the allowed column set.
func ordering(c *gin.Context, allowed map[string]bool, fallback string) string {
	raw := strings.TrimSpace(c.Query("ordering"))
	if raw == "" {
		return fallback
	}
	desc := strings.HasPrefix(raw, "-")
	col := strings.TrimPrefix(raw, "-")
	if !allowed[col] {
		return fallback
	}
	if desc {
		return col + " DESC"
	}
	return col
}

func fetchByID[T any](c *gin.Context, gdb *gorm.DB) (*T, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}
	var row T
	if err := gdb.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return &row, true
}

// --- products ---

var productOrdering = map[string]bool{
	"created_at": true, "updated_at": true, "price": true, "stock": true, "name": true,
}

func (s *Server) listProducts(c *gin.Context) {
	q := s.db.Model(&db.Product{})

	if v := c.Query("is_active"); v != "" {
		q = q.Where("is_active = ?", v == "true" || v == "1")
	}
	if v := c.Query("archived"); v != "" {
		q = q.Where("archived = ?", v == "true" || v == "1")
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR article LIKE ? OR code LIKE ?", like, like, like)
	}

	q = q.Session(&gorm.Session{})

	var count int64
	if err := q.Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	limit, offset := pagination(c)
	var rows []db.Product
	err := q.Order(ordering(c, productOrdering, "updated_at DESC")).
		Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count, "rows": rows})
}

func (s *Server) getProduct(c *gin.Context) {
	if row, ok := fetchByID[db.Product](c, s.db); ok {
		c.JSON(http.StatusOK, row)
	}
}

func (s *Server) createProduct(c *gin.Context) {
	var row db.Product
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.db.Create(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (s *Server) updateProduct(c *gin.Context) {
	row, ok := fetchByID[db.Product](c, s.db)
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.db.Save(row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) deleteProduct(c *gin.Context) {
	row, ok := fetchByID[db.Product](c, s.db)
	if !ok {
		return
	}
	if err := s.db.Delete(row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// --- categories ---

func (s *Server) listCategories(c *gin.Context) {
	q := s.db.Model(&db.Category{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q = q.Where("name LIKE ?", "%"+search+"%")
	}

	q = q.Session(&gorm.Session{})

	var count int64
	if err := q.Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	limit, offset := pagination(c)
	var rows []db.Category
	if err := q.Order("name").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count, "rows": rows})
}

func (s *Server) getCategory(c *gin.Context) {
	if row, ok := fetchByID[db.Category](c, s.db); ok {
		c.JSON(http.StatusOK, row)
	}
}

func (s *Server) createCategory(c *gin.Context) {
	var row db.Category
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.db.Create(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (s *Server) updateCategory(c *gin.Context) {
	row, ok := fetchByID[db.Category](c, s.db)
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.db.Save(row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) deleteCategory(c *gin.Context) {
	row, ok := fetchByID[db.Category](c, s.db)
	if !ok {
		return
	}
	if err := s.db.Delete(row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// --- orders ---

var orderOrdering = map[string]bool{
	"order_date": true, "created_at": true,
}

func (s *Server) listOrders(c *gin.Context) {
	q := s.db.Model(&db.Order{})

	if v := c.Query("status"); v != "" {
		q = q.Where("status = ?", v)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		q = q.Where("number LIKE ? OR customer_name LIKE ? OR customer_phone LIKE ?", like, like, like)
	}

	q = q.Session(&gorm.Session{})

	var count int64
	if err := q.Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	limit, offset := pagination(c)
	var rows []db.Order
	err := q.Order(ordering(c, orderOrdering, "order_date DESC")).
		Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count, "rows": rows})
}

func (s *Server) getOrder(c *gin.Context) {
	if row, ok := fetchByID[db.Order](c, s.db); ok {
		c.JSON(http.StatusOK, row)
	}
}

func (s *Server) createOrder(c *gin.Context) {
	var row db.Order
	if err := c.ShouldBindJSON(&row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if row.Status == "" {
		row.Status = db.OrderStatusNew
	}
	if err := s.db.Create(&row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, row)
}

func (s *Server) updateOrder(c *gin.Context) {
	row, ok := fetchByID[db.Order](c, s.db)
	if !ok {
		return
	}
	if err := c.ShouldBindJSON(row); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.db.Save(row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, row)
}

func (s *Server) deleteOrder(c *gin.Context) {
	row, ok := fetchByID[db.Order](c, s.db)
	if !ok {
		return
	}
	if err := s.db.Delete(row).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
