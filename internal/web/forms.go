package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"sari-go/internal/inventory"
)

type categoryForm struct {
	Name string `form:"name" binding:"required,max=50"`
}

type subcategoryForm struct {
	Name     string `form:"name" binding:"required,max=50"`
	ParentID int64  `form:"parent_id"`
}

// productForm carries numbers as strings so that malformed input becomes a
// field message instead of a generic binding failure.
type productForm struct {
	Name         string `form:"name" binding:"required,max=100"`
	Category     int64  `form:"category"`
	MainCategory int64  `form:"main_category"`
	Qty          string `form:"qty" binding:"required"`
	Price        string `form:"price" binding:"required"`
}

func (f productForm) input() (inventory.ProductInput, error) {
	qty, err := parseQuantity(f.Qty)
	if err != nil {
		return inventory.ProductInput{}, err
	}
	price, err := decimal.NewFromString(strings.TrimSpace(f.Price))
	if err != nil {
		return inventory.ProductInput{}, inventory.NewValidationError("price", "Price must be a number.")
	}

	return inventory.ProductInput{
		Name:           f.Name,
		CategoryID:     f.Category,
		MainCategoryID: f.MainCategory,
		Quantity:       qty,
		Price:          price,
	}, nil
}

type buyForm struct {
	Qty string `form:"qty" binding:"required"`
}

func (f buyForm) quantity() (int, error) {
	return parseQuantity(f.Qty)
}

func parseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, inventory.NewValidationError("qty", "Quantity must be a whole number.")
	}
	return n, nil
}

var fieldLabels = map[string]string{
	"Name":  "Name",
	"Qty":   "Quantity",
	"Price": "Price",
}

// bindError converts a gin binding failure into a *inventory.ValidationError
// carrying a message fit for the page.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return inventory.NewValidationError("", "Invalid form submission.")
	}

	fe := verrs[0]
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return inventory.NewValidationError(strings.ToLower(fe.Field()), label+" is required.")
	case "max":
		return inventory.NewValidationError(strings.ToLower(fe.Field()),
			fmt.Sprintf("%s must be at most %s characters.", label, fe.Param()))
	default:
		return inventory.NewValidationError(strings.ToLower(fe.Field()), label+" is invalid.")
	}
}

// formUpload returns the file posted under field, or nil when the form has
// none. The returned func closes the file and is always safe to call.
func formUpload(c *gin.Context, field string) (*inventory.Upload, func(), error) {
	noop := func() {}

	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, inventory.NewValidationError(field, "Could not read the uploaded file.")
	}
	if fh.Filename == "" {
		return nil, noop, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("opening upload: %w", err)
	}

	return &inventory.Upload{
		Filename: fh.Filename,
		Size:     fh.Size,
		Body:     f,
	}, func() { f.Close() }, nil
}
