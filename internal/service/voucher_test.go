package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"order-service/internal/models"

	"github.com/google/uuid"
)

func TestComputeDiscount(t *testing.T) {
	tests := []struct {
		name     string
		v        models.Voucher
		subtotal int64
		want     int64
	}{
		{"fixed", models.Voucher{DiscountType: models.DiscountFixed, Discount: 20000}, 150000, 20000},
		{"percent no cap", models.Voucher{DiscountType: models.DiscountPercentage, Discount: 10}, 150000, 15000},
		{"percent capped", models.Voucher{DiscountType: models.DiscountPercentage, Discount: 10, MaxDiscount: 5}, 100, 5},
		{"percent below cap", models.Voucher{DiscountType: models.DiscountPercentage, Discount: 10, MaxDiscount: 50000}, 100000, 10000},
		{"percent rounds half up", models.Voucher{DiscountType: models.DiscountPercentage, Discount: 15}, 10, 2},
		{"percent rounds down", models.Voucher{DiscountType: models.DiscountPercentage, Discount: 12}, 10, 1},
		{"unknown type", models.Voucher{DiscountType: "bogus", Discount: 10}, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeDiscount(&tt.v, tt.subtotal); got != tt.want {
				t.Fatalf("ComputeDiscount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestVoucherEvaluate(t *testing.T) {
	e := newEnv(t)
	e.store.addVoucher(models.Voucher{Code: "SALE10", DiscountType: models.DiscountPercentage, Discount: 10, MinOrderValue: 50, ExpirationDate: future(), UsageLimit: 5})
	e.store.addVoucher(models.Voucher{Code: "OLD", DiscountType: models.DiscountFixed, Discount: 10, ExpirationDate: time.Now().Add(-time.Hour), UsageLimit: 5})
	e.store.addVoucher(models.Voucher{Code: "USEDUP", DiscountType: models.DiscountFixed, Discount: 10, ExpirationDate: future(), UsageLimit: 1, UsedCount: 1})

	ctx := context.Background()

	q, err := e.vouchers.Evaluate(ctx, " sale10 ", 100)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if q.Discount != 10 {
		t.Fatalf("discount = %d, want 10", q.Discount)
	}

	cases := []struct {
		code     string
		subtotal int64
		want     error
	}{
		{"SALE10", 49, ErrMinOrderNotMet},
		{"OLD", 100, ErrVoucherInactive},
		{"USEDUP", 100, ErrVoucherInactive},
		{"MISSING", 100, ErrVoucherNotFound},
	}
	for _, c := range cases {
		if _, err := e.vouchers.Evaluate(ctx, c.code, c.subtotal); !errors.Is(err, c.want) {
			t.Fatalf("Evaluate(%s, %d) err = %v, want %v", c.code, c.subtotal, err, c.want)
		}
	}
}

func TestVoucherApplyExhaustsLimit(t *testing.T) {
	e := newEnv(t)
	v := e.store.addVoucher(models.Voucher{Code: "ONCE", DiscountType: models.DiscountFixed, Discount: 5, ExpirationDate: future(), UsageLimit: 1})

	if _, err := e.vouchers.Apply(context.Background(), "ONCE", 100); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	got := e.store.voucher(v.ID)
	if got.UsedCount != 1 || got.IsActive {
		t.Fatalf("voucher after apply = used %d active %v, want 1 false", got.UsedCount, got.IsActive)
	}
	if _, err := e.vouchers.Apply(context.Background(), "ONCE", 100); !errors.Is(err, ErrVoucherInactive) {
		t.Fatalf("second Apply err = %v, want ErrVoucherInactive", err)
	}
}

func TestVoucherAdminCRUD(t *testing.T) {
	e := newEnv(t)
	admin := asUser(uuid.New(), RoleAdmin)

	in := VoucherInput{
		Code:           "summer",
		Discount:       15,
		DiscountType:   models.DiscountPercentage,
		MaxDiscount:    30000,
		ExpirationDate: future(),
		UsageLimit:     10,
	}
	v, err := e.vouchers.Create(admin, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if v.Code != "SUMMER" {
		t.Fatalf("code = %q, want normalized SUMMER", v.Code)
	}

	if _, err := e.vouchers.Create(admin, in); !errors.Is(err, ErrVoucherCodeTaken) {
		t.Fatalf("duplicate Create err = %v, want ErrVoucherCodeTaken", err)
	}

	bad := in
	bad.Code = "OTHER"
	bad.Discount = 150
	if _, err := e.vouchers.Create(admin, bad); !errors.Is(err, ErrInvalidVoucher) {
		t.Fatalf("percentage > 100 err = %v, want ErrInvalidVoucher", err)
	}

	if _, err := e.vouchers.Create(asUser(uuid.New(), RoleCustomer), VoucherInput{Code: "X"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("customer Create err = %v, want ErrForbidden", err)
	}

	upd := in
	upd.UsageLimit = 20
	got, err := e.vouchers.Update(admin, v.ID, upd)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.UsageLimit != 20 {
		t.Fatalf("usage limit = %d, want 20", got.UsageLimit)
	}

	list, total, err := e.vouchers.List(admin, 10, 0)
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("List = %d/%d, %v", len(list), total, err)
	}

	if err := e.vouchers.Delete(admin, v.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := e.vouchers.Delete(admin, v.ID); !errors.Is(err, ErrVoucherNotFound) {
		t.Fatalf("second Delete err = %v, want ErrVoucherNotFound", err)
	}
	if _, err := e.vouchers.Get(admin, v.ID); !errors.Is(err, ErrVoucherNotFound) {
		t.Fatalf("Get after delete err = %v, want ErrVoucherNotFound", err)
	}
}

func TestVoucherGetUsable(t *testing.T) {
	e := newEnv(t)
	e.store.addVoucher(models.Voucher{Code: "LIVE", DiscountType: models.DiscountFixed, Discount: 1, ExpirationDate: future(), UsageLimit: 1})

	if _, err := e.vouchers.GetUsable(context.Background(), "LIVE"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("anonymous err = %v, want ErrUnauthorized", err)
	}
	v, err := e.vouchers.GetUsable(asUser(uuid.New(), RoleCustomer), "live")
	if err != nil || v.Code != "LIVE" {
		t.Fatalf("GetUsable = %+v, %v", v, err)
	}
}
