package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/shopspring/decimal"

	"sari-go/internal/inventory"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// pages lists every page template; each is parsed together with layout.html.
var pages = []string{
	"index",
	"product_management",
	"categories",
	"edit_category",
	"edit_product",
	"customer_purchase",
	"stock_reports",
	"error",
}

// Options tunes the router.
type Options struct {
	// MaxUploadBytes caps request bodies on form submissions. Zero means 10 MiB.
	MaxUploadBytes int64
}

// NewRouter builds the gin engine serving the store's pages.
func NewRouter(svc *inventory.Service, logger *slog.Logger, opts Options) (*gin.Engine, error) {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}

	renderer, err := loadPages()
	if err != nil {
		return nil, err
	}

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	h := &handlers{svc: svc, logger: logger}

	router := gin.New()
	router.HTMLRender = renderer
	router.MaxMultipartMemory = opts.MaxUploadBytes
	router.Use(recovery(logger), requestLogger(logger))
	router.NoRoute(func(c *gin.Context) {
		h.errorPage(c, http.StatusNotFound, "Page not found.")
	})

	router.StaticFS("/static", http.FS(static))
	router.GET("/healthz", h.health)
	router.GET("/uploads/:name", h.image)

	router.GET("/", h.dashboard)
	router.GET("/categories", h.categories)
	router.GET("/customer_purchase", h.customerPurchase)
	router.GET("/stock_reports", h.stockReports)
	router.GET("/product_management", h.productManagement)
	router.GET("/edit_category/:id", h.editCategoryForm)
	router.GET("/edit_product/:id", h.editProductForm)

	// Deletes are plain links in the UI, hence GET.
	router.GET("/delete_category/:id", h.deleteCategory)
	router.GET("/delete/:id", h.deleteProduct)

	forms := router.Group("/", limitBody(opts.MaxUploadBytes))
	{
		forms.POST("/product_management", h.createProduct)
		forms.POST("/add_category", h.addCategory)
		forms.POST("/add_subcategory", h.addSubcategory)
		forms.POST("/edit_category/:id", h.editCategory)
		forms.POST("/edit_product/:id", h.editProduct)
		forms.POST("/buy/:id", h.buy)
	}

	return router, nil
}

var templateFuncs = template.FuncMap{
	"peso": func(d decimal.Decimal) string {
		return "₱" + d.StringFixed(2)
	},
	"lowStock": func(qty int) bool {
		return qty <= inventory.LowStockThreshold
	},
}

// pageRenderer implements gin's render.HTMLRender with one template set per
// page, so every page can define its own "content" block.
type pageRenderer map[string]*template.Template

func (p pageRenderer) Instance(name string, data any) render.Render {
	t, ok := p[name]
	if !ok {
		t = p["error"]
		data = gin.H{"Status": http.StatusInternalServerError, "Message": "Unknown page " + name + "."}
	}
	return render.HTML{Template: t, Name: "layout", Data: data}
}

func loadPages() (pageRenderer, error) {
	r := make(pageRenderer, len(pages))
	for _, page := range pages {
		t, err := template.New(page).Funcs(templateFuncs).ParseFS(templateFiles,
			"templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		r[page] = t
	}
	return r, nil
}
