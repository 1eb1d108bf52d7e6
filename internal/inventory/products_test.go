package inventory_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"sari-go/internal/inventory"
	"sari-go/internal/testutil"
)

// The store owner sets up Snacks > Chips, stocks 20 Chippy at 15.50 and sells
// from it until a purchase asks for more than is left.
func TestService_ChippyScenario(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewTestEnv(t)

	snacks := mustAddCategory(t, env, "Snacks")
	chips := mustAddSubcategory(t, env, "Chips", snacks.ID)
	chippy := mustCreateProduct(t, env, "Chippy", chips.ID, 20, "15.50", nil)

	if chippy.CategoryName != "Chips" {
		t.Errorf("CategoryName = %q, want Chips", chippy.CategoryName)
	}

	p, err := env.Service.Purchase(ctx, chippy.ID, 5)
	if err != nil {
		t.Fatalf("Purchase(5) error = %v", err)
	}
	if p.Quantity != 15 {
		t.Errorf("Quantity after buying 5 = %d, want 15", p.Quantity)
	}

	_, err = env.Service.Purchase(ctx, chippy.ID, 20)
	if !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("Purchase(20) error = %v, want ErrInsufficientStock", err)
	}

	got, err := env.Service.GetProduct(ctx, chippy.ID)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if got.Quantity != 15 {
		t.Errorf("Quantity after rejected purchase = %d, want 15", got.Quantity)
	}
	if !got.Price.Equal(decimal.RequireFromString("15.5")) {
		t.Errorf("Price = %s, want 15.50", got.Price)
	}
}

func TestService_CreateProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("stores image under slugged unique name", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")

		p := mustCreateProduct(t, env, "Chippy", snacks.ID, 3, "15.50", upload("My Photo (1).JPG", "jpeg-bytes"))
		if p.Image != "my-photo-1-id1.jpg" {
			t.Errorf("Image = %q, want my-photo-1-id1.jpg", p.Image)
		}

		var buf bytes.Buffer
		if err := env.Service.OpenImage(ctx, p.Image, &buf); err != nil {
			t.Fatalf("OpenImage() error = %v", err)
		}
		if buf.String() != "jpeg-bytes" {
			t.Errorf("stored image = %q, want jpeg-bytes", buf.String())
		}
	})

	t.Run("same filename twice gets two names", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")

		a := mustCreateProduct(t, env, "A", snacks.ID, 1, "1", upload("photo.png", "a"))
		b := mustCreateProduct(t, env, "B", snacks.ID, 1, "1", upload("photo.png", "b"))
		if a.Image == b.Image {
			t.Errorf("both products stored image as %q", a.Image)
		}
	})

	t.Run("main category used when no subcategory", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")

		p, err := env.Service.CreateProduct(ctx, inventory.ProductInput{
			Name:           "Boy Bawang",
			MainCategoryID: snacks.ID,
			Quantity:       4,
			Price:          decimal.NewFromInt(10),
		}, nil)
		if err != nil {
			t.Fatalf("CreateProduct() error = %v", err)
		}
		if p.CategoryID != snacks.ID {
			t.Errorf("CategoryID = %d, want %d", p.CategoryID, snacks.ID)
		}
	})

	t.Run("subcategory wins over main category", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")
		chips := mustAddSubcategory(t, env, "Chips", snacks.ID)

		p, err := env.Service.CreateProduct(ctx, inventory.ProductInput{
			Name:           "Chippy",
			CategoryID:     chips.ID,
			MainCategoryID: snacks.ID,
			Quantity:       4,
			Price:          decimal.NewFromInt(10),
		}, nil)
		if err != nil {
			t.Fatalf("CreateProduct() error = %v", err)
		}
		if p.CategoryID != chips.ID {
			t.Errorf("CategoryID = %d, want %d", p.CategoryID, chips.ID)
		}
	})

	t.Run("no image leaves store untouched", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")

		mustCreateProduct(t, env, "Chippy", snacks.ID, 1, "1", nil)
		mustCreateProduct(t, env, "Piattos", snacks.ID, 1, "1", &inventory.Upload{})
		if n := env.Images.Calls(); n != 0 {
			t.Errorf("image store calls = %d, want 0", n)
		}
	})

	t.Run("missing category saves no image", func(t *testing.T) {
		env := testutil.NewTestEnv(t)

		_, err := env.Service.CreateProduct(ctx, inventory.ProductInput{
			Name:       "Chippy",
			CategoryID: 42,
			Quantity:   1,
			Price:      decimal.NewFromInt(1),
		}, upload("chippy.png", "x"))
		if !errors.Is(err, inventory.ErrNotFound) {
			t.Errorf("CreateProduct() error = %v, want ErrNotFound", err)
		}
		if names := env.Images.Names(); len(names) != 0 {
			t.Errorf("images stored = %v, want none", names)
		}
	})

	t.Run("image save failure", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")
		env.Images.FailSave = true

		_, err := env.Service.CreateProduct(ctx, inventory.ProductInput{
			Name:       "Chippy",
			CategoryID: snacks.ID,
			Quantity:   1,
			Price:      decimal.NewFromInt(1),
		}, upload("chippy.png", "x"))
		if !errors.Is(err, testutil.ErrInjected) {
			t.Errorf("CreateProduct() error = %v, want injected failure", err)
		}

		products, err := env.Service.ListProducts(ctx)
		if err != nil {
			t.Fatalf("ListProducts() error = %v", err)
		}
		if len(products) != 0 {
			t.Errorf("products = %d, want 0", len(products))
		}
	})
}

func TestService_CreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    inventory.ProductInput
		img   *inventory.Upload
		field string
	}{
		{
			name:  "blank name",
			in:    inventory.ProductInput{Name: " ", CategoryID: 1, Quantity: 1, Price: decimal.NewFromInt(1)},
			field: "name",
		},
		{
			name:  "no category",
			in:    inventory.ProductInput{Name: "Chippy", Quantity: 1, Price: decimal.NewFromInt(1)},
			field: "category",
		},
		{
			name:  "negative quantity",
			in:    inventory.ProductInput{Name: "Chippy", CategoryID: 1, Quantity: -1, Price: decimal.NewFromInt(1)},
			field: "qty",
		},
		{
			name:  "negative price",
			in:    inventory.ProductInput{Name: "Chippy", CategoryID: 1, Quantity: 1, Price: decimal.NewFromInt(-1)},
			field: "price",
		},
		{
			name:  "unsupported image type",
			in:    inventory.ProductInput{Name: "Chippy", CategoryID: 1, Quantity: 1, Price: decimal.NewFromInt(1)},
			img:   upload("notes.txt", "hello"),
			field: "image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewTestEnv(t)
			mustAddCategory(t, env, "Snacks")

			_, err := env.Service.CreateProduct(context.Background(), tt.in, tt.img)
			var ve *inventory.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("CreateProduct() error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestService_UpdateProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps image when none uploaded", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")
		p := mustCreateProduct(t, env, "Chippy", snacks.ID, 3, "15.50", upload("chippy.png", "old"))

		got, err := env.Service.UpdateProduct(ctx, p.ID, inventory.ProductInput{
			Name:       "Chippy BBQ",
			CategoryID: snacks.ID,
			Quantity:   30,
			Price:      decimal.RequireFromString("16"),
		}, nil)
		if err != nil {
			t.Fatalf("UpdateProduct() error = %v", err)
		}
		if got.Name != "Chippy BBQ" || got.Quantity != 30 || got.Image != p.Image {
			t.Errorf("UpdateProduct() = %+v", got)
		}
	})

	t.Run("replacing image removes the old one", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")
		p := mustCreateProduct(t, env, "Chippy", snacks.ID, 3, "15.50", upload("chippy.png", "old"))

		got, err := env.Service.UpdateProduct(ctx, p.ID, inventory.ProductInput{
			Name:       "Chippy",
			CategoryID: snacks.ID,
			Quantity:   3,
			Price:      decimal.RequireFromString("15.50"),
		}, upload("chippy.png", "new"))
		if err != nil {
			t.Fatalf("UpdateProduct() error = %v", err)
		}
		if got.Image == p.Image {
			t.Fatalf("Image unchanged: %q", got.Image)
		}

		names := env.Images.Names()
		if len(names) != 1 || names[0] != got.Image {
			t.Errorf("stored images = %v, want only %s", names, got.Image)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")

		_, err := env.Service.UpdateProduct(ctx, 77, inventory.ProductInput{
			Name:       "Ghost",
			CategoryID: snacks.ID,
			Price:      decimal.Zero,
		}, nil)
		if !errors.Is(err, inventory.ErrNotFound) {
			t.Errorf("UpdateProduct() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("move to missing category", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")
		p := mustCreateProduct(t, env, "Chippy", snacks.ID, 3, "15.50", nil)

		_, err := env.Service.UpdateProduct(ctx, p.ID, inventory.ProductInput{
			Name:       "Chippy",
			CategoryID: 99,
			Quantity:   3,
			Price:      decimal.RequireFromString("15.50"),
		}, nil)
		if !errors.Is(err, inventory.ErrNotFound) {
			t.Errorf("UpdateProduct() error = %v, want ErrNotFound", err)
		}
	})
}

func TestService_DeleteProduct(t *testing.T) {
	ctx := context.Background()

	t.Run("removes product and image", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")
		p := mustCreateProduct(t, env, "Chippy", snacks.ID, 3, "15.50", upload("chippy.png", "x"))

		if err := env.Service.DeleteProduct(ctx, p.ID); err != nil {
			t.Fatalf("DeleteProduct() error = %v", err)
		}
		if _, err := env.Service.GetProduct(ctx, p.ID); !errors.Is(err, inventory.ErrNotFound) {
			t.Errorf("GetProduct() after delete error = %v, want ErrNotFound", err)
		}
		if names := env.Images.Names(); len(names) != 0 {
			t.Errorf("images left = %v, want none", names)
		}
	})

	t.Run("without image never touches store", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")
		p := mustCreateProduct(t, env, "Chippy", snacks.ID, 3, "15.50", nil)

		if err := env.Service.DeleteProduct(ctx, p.ID); err != nil {
			t.Fatalf("DeleteProduct() error = %v", err)
		}
		if n := env.Images.Calls(); n != 0 {
			t.Errorf("image store calls = %d, want 0", n)
		}
	})

	t.Run("image removal failure keeps product deleted", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")
		p := mustCreateProduct(t, env, "Chippy", snacks.ID, 3, "15.50", upload("chippy.png", "x"))
		env.Images.FailDelete = true

		if err := env.Service.DeleteProduct(ctx, p.ID); err != nil {
			t.Fatalf("DeleteProduct() error = %v", err)
		}
		if _, err := env.Service.GetProduct(ctx, p.ID); !errors.Is(err, inventory.ErrNotFound) {
			t.Errorf("GetProduct() after delete error = %v, want ErrNotFound", err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")
		p := mustCreateProduct(t, env, "Chippy", snacks.ID, 3, "15.50", upload("chippy.png", "x"))
		env.Database.Close()

		if err := env.Service.DeleteProduct(ctx, p.ID); err == nil {
			t.Fatal("DeleteProduct() on closed database expected error")
		}
		if names := env.Images.Names(); len(names) != 1 {
			t.Errorf("images = %v, want image kept", names)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		env := testutil.NewTestEnv(t)

		err := env.Service.DeleteProduct(ctx, 5)
		if !errors.Is(err, inventory.ErrNotFound) {
			t.Errorf("DeleteProduct() error = %v, want ErrNotFound", err)
		}
	})
}

func TestService_Purchase(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		qty     int
		want    int
		wantErr func(error) bool
	}{
		{name: "partial", qty: 4, want: 6},
		{name: "everything", qty: 10, want: 0},
		{name: "too many", qty: 11, want: 10, wantErr: func(err error) bool { return errors.Is(err, inventory.ErrInsufficientStock) }},
		{name: "zero", qty: 0, want: 10, wantErr: inventory.IsValidation},
		{name: "negative", qty: -3, want: 10, wantErr: inventory.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewTestEnv(t)
			snacks := mustAddCategory(t, env, "Snacks")
			p := mustCreateProduct(t, env, "Chippy", snacks.ID, 10, "15.50", nil)

			_, err := env.Service.Purchase(ctx, p.ID, tt.qty)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Purchase() error = %v", err)
			}
			if tt.wantErr != nil && !tt.wantErr(err) {
				t.Fatalf("Purchase() error = %v, want a different error", err)
			}

			got, err := env.Service.GetProduct(ctx, p.ID)
			if err != nil {
				t.Fatalf("GetProduct() error = %v", err)
			}
			if got.Quantity != tt.want {
				t.Errorf("Quantity = %d, want %d", got.Quantity, tt.want)
			}
		})
	}

	t.Run("concurrent buyers never oversell", func(t *testing.T) {
		env := testutil.NewTestEnv(t)
		snacks := mustAddCategory(t, env, "Snacks")
		p := mustCreateProduct(t, env, "Chippy", snacks.ID, 10, "15.50", nil)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			sold int
		)
		for i := 0; i < 30; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := env.Service.Purchase(ctx, p.ID, 1); err == nil {
					mu.Lock()
					sold++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if sold != 10 {
			t.Errorf("sold = %d, want 10", sold)
		}
	})

	t.Run("missing product", func(t *testing.T) {
		env := testutil.NewTestEnv(t)

		_, err := env.Service.Purchase(ctx, 3, 1)
		if !errors.Is(err, inventory.ErrNotFound) {
			t.Errorf("Purchase() error = %v, want ErrNotFound", err)
		}
	})
}

func TestService_OpenImage_RejectsPaths(t *testing.T) {
	env := testutil.NewTestEnv(t)

	for _, name := range []string{"", "../sari.db", ".hidden", "a/b.png"} {
		var buf bytes.Buffer
		err := env.Service.OpenImage(context.Background(), name, &buf)
		if !errors.Is(err, inventory.ErrNotFound) {
			t.Errorf("OpenImage(%q) error = %v, want ErrNotFound", name, err)
		}
	}
}
