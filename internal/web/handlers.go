package web

import (
	"bytes"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"sari-go/internal/inventory"
	"sari-go/internal/model"
)

type handlers struct {
	svc    *inventory.Service
	logger *slog.Logger
}

// Dashboard

func (h *handlers) dashboard(c *gin.Context) {
	d, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "index", gin.H{
		"Title":     "Dashboard",
		"Dashboard": d,
		"Threshold": inventory.LowStockThreshold,
	})
}

func (h *handlers) stockReports(c *gin.Context) {
	r, err := h.svc.StockReport(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(http.StatusOK, "stock_reports", gin.H{
		"Title":     "Stock Reports",
		"Report":    r,
		"Threshold": inventory.LowStockThreshold,
	})
}

// Categories

func (h *handlers) categories(c *gin.Context) {
	h.renderCategories(c, http.StatusOK, "")
}

func (h *handlers) renderCategories(c *gin.Context, status int, message string) {
	tree, err := h.svc.CategoryTree(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(status, "categories", gin.H{
		"Title": "Categories",
		"Tree":  tree,
		"Error": message,
	})
}

func (h *handlers) addCategory(c *gin.Context) {
	var form categoryForm
	if err := c.ShouldBind(&form); err != nil {
		h.formError(c, bindError(err), "", h.renderCategories)
		return
	}

	if _, err := h.svc.AddCategory(c.Request.Context(), form.Name); err != nil {
		h.formError(c, err, "Category already exists!", h.renderCategories)
		return
	}
	c.Redirect(http.StatusSeeOther, "/categories")
}

func (h *handlers) addSubcategory(c *gin.Context) {
	var form subcategoryForm
	if err := c.ShouldBind(&form); err != nil {
		h.formError(c, bindError(err), "", h.renderCategories)
		return
	}

	if _, err := h.svc.AddSubcategory(c.Request.Context(), form.Name, form.ParentID); err != nil {
		h.formError(c, err, "Subcategory already exists under this category!", h.renderCategories)
		return
	}
	c.Redirect(http.StatusSeeOther, "/categories")
}

func (h *handlers) editCategoryForm(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	h.renderEditCategory(c, id, http.StatusOK, "")
}

func (h *handlers) renderEditCategory(c *gin.Context, id int64, status int, message string) {
	cat, err := h.svc.GetCategory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(status, "edit_category", gin.H{
		"Title":    "Edit Category",
		"Category": cat,
		"Error":    message,
	})
}

func (h *handlers) editCategory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	rerender := func(c *gin.Context, status int, message string) {
		h.renderEditCategory(c, id, status, message)
	}

	var form categoryForm
	if err := c.ShouldBind(&form); err != nil {
		h.formError(c, bindError(err), "", rerender)
		return
	}

	if _, err := h.svc.RenameCategory(c.Request.Context(), id, form.Name); err != nil {
		h.formError(c, err, "Category name already exists!", rerender)
		return
	}
	c.Redirect(http.StatusSeeOther, "/categories")
}

func (h *handlers) deleteCategory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if _, err := h.svc.DeleteCategory(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/product_management")
}

// Products

func (h *handlers) productManagement(c *gin.Context) {
	h.renderProductManagement(c, http.StatusOK, "")
}

func (h *handlers) renderProductManagement(c *gin.Context, status int, message string) {
	ctx := c.Request.Context()
	products, err := h.svc.ListProducts(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	cats, err := h.svc.ListCategories(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.HTML(status, "product_management", gin.H{
		"Title":        "Product Management",
		"Products":     products,
		"Tree":         inventory.BuildTree(cats),
		"CategoryData": categoryData(cats),
		"Error":        message,
	})
}

func (h *handlers) createProduct(c *gin.Context) {
	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		h.formError(c, bindError(err), "", h.renderProductManagement)
		return
	}
	in, err := form.input()
	if err != nil {
		h.formError(c, err, "", h.renderProductManagement)
		return
	}

	upload, closeUpload, err := formUpload(c, "image")
	if err != nil {
		h.formError(c, err, "", h.renderProductManagement)
		return
	}
	defer closeUpload()

	if _, err := h.svc.CreateProduct(c.Request.Context(), in, upload); err != nil {
		h.formError(c, err, "", h.renderProductManagement)
		return
	}
	c.Redirect(http.StatusSeeOther, "/product_management")
}

func (h *handlers) editProductForm(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	h.renderEditProduct(c, id, http.StatusOK, "")
}

func (h *handlers) renderEditProduct(c *gin.Context, id int64, status int, message string) {
	ctx := c.Request.Context()
	p, err := h.svc.GetProduct(ctx, id)
	if err != nil {
		h.fail(c, err)
		return
	}
	tree, err := h.svc.CategoryTree(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.HTML(status, "edit_product", gin.H{
		"Title":   "Edit Product",
		"Product": p,
		"Tree":    tree,
		"Error":   message,
	})
}

func (h *handlers) editProduct(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	rerender := func(c *gin.Context, status int, message string) {
		h.renderEditProduct(c, id, status, message)
	}

	var form productForm
	if err := c.ShouldBind(&form); err != nil {
		h.formError(c, bindError(err), "", rerender)
		return
	}
	in, err := form.input()
	if err != nil {
		h.formError(c, err, "", rerender)
		return
	}

	upload, closeUpload, err := formUpload(c, "image")
	if err != nil {
		h.formError(c, err, "", rerender)
		return
	}
	defer closeUpload()

	if _, err := h.svc.UpdateProduct(c.Request.Context(), id, in, upload); err != nil {
		h.formError(c, err, "", rerender)
		return
	}
	c.Redirect(http.StatusSeeOther, "/product_management")
}

func (h *handlers) deleteProduct(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteProduct(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/product_management")
}

// Purchases

func (h *handlers) customerPurchase(c *gin.Context) {
	h.renderPurchase(c, http.StatusOK, "")
}

func (h *handlers) renderPurchase(c *gin.Context, status int, message string) {
	products, err := h.svc.ListProducts(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.HTML(status, "customer_purchase", gin.H{
		"Title":    "Customer Purchase",
		"Products": products,
		"Error":    message,
	})
}

func (h *handlers) buy(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var form buyForm
	if err := c.ShouldBind(&form); err != nil {
		h.formError(c, bindError(err), "", h.renderPurchase)
		return
	}
	qty, err := form.quantity()
	if err != nil {
		h.formError(c, err, "", h.renderPurchase)
		return
	}

	if _, err := h.svc.Purchase(c.Request.Context(), id, qty); err != nil {
		h.formError(c, err, "", h.renderPurchase)
		return
	}
	c.Redirect(http.StatusSeeOther, "/customer_purchase")
}

// Infrastructure

func (h *handlers) image(c *gin.Context) {
	name := c.Param("name")

	var buf bytes.Buffer
	if err := h.svc.OpenImage(c.Request.Context(), name, &buf); err != nil {
		h.fail(c, err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *handlers) health(c *gin.Context) {
	if err := h.svc.Health(c.Request.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// pathID parses the :id parameter, answering 404 when it is not a number.
func (h *handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.errorPage(c, http.StatusNotFound, "Not found.")
		return 0, false
	}
	return id, true
}

type categoryJSON struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
}

// categoryData feeds the subcategory picker on the product form.
func categoryData(cats []*model.Category) []categoryJSON {
	out := make([]categoryJSON, 0, len(cats))
	for _, cat := range cats {
		entry := categoryJSON{ID: cat.ID, Name: cat.Name}
		if pid, ok := cat.Parent.ID(); ok {
			entry.ParentID = &pid
		}
		out = append(out, entry)
	}
	return out
}
