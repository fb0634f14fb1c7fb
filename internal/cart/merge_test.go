package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/groupcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/groupcart-backend/pkg/errors"
	"github.com/google/uuid"
)

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	guest, err := h.svc.AddItem(ctx, GuestIdentity("tok-m"), AddItemInput{ProductID: "p-rice", Quantity: 2})
	if err != nil {
		t.Fatalf("guest add: %v", err)
	}
	guestItemID := guest.Items[0].ID

	first, err := h.svc.MergeGuestIntoUser(ctx, "tok-m", "u-m")
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}
	if len(first.Cart.Items) != 1 || first.Cart.Items[0].Quantity != 2 {
		t.Fatalf("expected {p-rice: 2}, got %+v", first.Cart.Items)
	}
	if first.Cart.Items[0].ID == guestItemID {
		t.Fatal("merged line must get a fresh id")
	}
	if first.MergedItems != 1 || len(first.Warnings) != 0 {
		t.Fatalf("unexpected merge summary: %+v", first)
	}
	if _, ok := h.repo.stored("guest:tok-m"); ok {
		t.Fatal("guest cart should be deleted from the durable store")
	}
	if h.backend.has("guest:tok-m") {
		t.Fatal("guest cart should be evicted from the cache")
	}

	second, err := h.svc.MergeGuestIntoUser(ctx, "tok-m", "u-m")
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if len(second.Cart.Items) != 1 || second.Cart.Items[0].Quantity != 2 {
		t.Fatalf("second merge must be a no-op, got %+v", second.Cart.Items)
	}
	if second.MergedItems != 0 {
		t.Fatalf("expected nothing merged on retry, got %d", second.MergedItems)
	}
	if _, ok := h.repo.stored("guest:tok-m"); ok {
		t.Fatal("retry must not resurrect the guest cart")
	}
}

func TestMergeRetryIgnoresStaleCachedGuest(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.AddItem(ctx, GuestIdentity("tok-r"), AddItemInput{ProductID: "p-rice", Quantity: 2}); err != nil {
		t.Fatalf("guest add: %v", err)
	}

	h.backend.delErr = errors.New("redis: connection refused")
	first, err := h.svc.MergeGuestIntoUser(ctx, "tok-r", "u-r")
	if err != nil {
		t.Fatalf("merge must succeed when eviction fails: %v", err)
	}
	if first.Cart.Items[0].Quantity != 2 {
		t.Fatalf("expected {p-rice: 2}, got %+v", first.Cart.Items)
	}
	h.backend.delErr = nil

	if _, ok := h.repo.stored("guest:tok-r"); ok {
		t.Fatal("guest cart should be gone from the durable store")
	}
	if !h.backend.has("guest:tok-r") {
		t.Fatal("expected the failed eviction to leave the guest cart cached")
	}

	second, err := h.svc.MergeGuestIntoUser(ctx, "tok-r", "u-r")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(second.Cart.Items) != 1 || second.Cart.Items[0].Quantity != 2 {
		t.Fatalf("retry must not merge the cached guest cart again, got %+v", second.Cart.Items)
	}
	if second.MergedItems != 0 {
		t.Fatalf("expected nothing merged on retry, got %d", second.MergedItems)
	}
	if h.backend.has("guest:tok-r") {
		t.Fatal("retry should evict the stale guest cart")
	}
	stored, _ := h.repo.stored("user:u-r")
	if stored.Items[0].Quantity != 2 {
		t.Fatalf("durable user cart changed on retry: %+v", stored.Items)
	}
}

func TestMergeRetryAfterFailedGuestDelete(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.svc.tx = rollbackTx{repo: h.repo}
	ctx := context.Background()

	if _, err := h.svc.AddItem(ctx, UserIdentity("u-d"), AddItemInput{ProductID: "p-rice", Quantity: 1}); err != nil {
		t.Fatalf("user add: %v", err)
	}
	if _, err := h.svc.AddItem(ctx, GuestIdentity("tok-d"), AddItemInput{ProductID: "p-rice", Quantity: 2}); err != nil {
		t.Fatalf("guest add: %v", err)
	}

	h.repo.deleteErr = errors.New("connection reset by peer")
	_, err := h.svc.MergeGuestIntoUser(ctx, "tok-d", "u-d")
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	stored, _ := h.repo.stored("user:u-d")
	if stored.Items[0].Quantity != 1 {
		t.Fatalf("failed merge must not change the user cart, got %+v", stored.Items)
	}
	if _, ok := h.repo.stored("guest:tok-d"); !ok {
		t.Fatal("failed merge must keep the guest cart")
	}
	h.repo.deleteErr = nil

	res, err := h.svc.MergeGuestIntoUser(ctx, "tok-d", "u-d")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(res.Cart.Items) != 1 || res.Cart.Items[0].Quantity != 3 || res.MergedItems != 1 {
		t.Fatalf("expected {p-rice: 3} merged once, got %+v", res)
	}
	if _, ok := h.repo.stored("guest:tok-d"); ok {
		t.Fatal("guest cart should be deleted after the retry")
	}

	again, err := h.svc.MergeGuestIntoUser(ctx, "tok-d", "u-d")
	if err != nil {
		t.Fatalf("third merge: %v", err)
	}
	if again.Cart.Items[0].Quantity != 3 {
		t.Fatalf("third merge must be a no-op, got %+v", again.Cart.Items)
	}
	assertTotalsInvariant(t, again.Cart)
}

func TestMergeClampsAgainstCurrentCatalogMaximum(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.AddItem(ctx, UserIdentity("u-l"), AddItemInput{ProductID: "p-rice", Quantity: 3}); err != nil {
		t.Fatalf("user add: %v", err)
	}
	if _, err := h.svc.AddItem(ctx, GuestIdentity("tok-l"), AddItemInput{ProductID: "p-rice", Quantity: 4}); err != nil {
		t.Fatalf("guest add: %v", err)
	}
	h.catalog.products["p-rice"].MaxOrderQty = intPtr(5)

	res, err := h.svc.MergeGuestIntoUser(ctx, "tok-l", "u-l")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if res.Cart.Items[0].Quantity != 5 {
		t.Fatalf("expected clamp to the current maximum 5, got %d", res.Cart.Items[0].Quantity)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Type != enums.CartItemWarningTypeClampedToMax ||
		res.Warnings[0].Requested != 7 || res.Warnings[0].Applied != 5 {
		t.Fatalf("unexpected warnings: %+v", res.Warnings)
	}
	assertTotalsInvariant(t, res.Cart)
}

func TestMergeClampsCopiedLineAgainstCurrentCatalogMaximum(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.AddItem(ctx, GuestIdentity("tok-n"), AddItemInput{ProductID: "p-rice", Quantity: 4}); err != nil {
		t.Fatalf("guest add: %v", err)
	}
	h.catalog.products["p-rice"].MaxOrderQty = intPtr(3)

	res, err := h.svc.MergeGuestIntoUser(ctx, "tok-n", "u-n")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(res.Cart.Items) != 1 || res.Cart.Items[0].Quantity != 3 {
		t.Fatalf("expected copied line clamped to 3, got %+v", res.Cart.Items)
	}
	if len(res.Warnings) != 1 || res.Warnings[0].Requested != 4 || res.Warnings[0].Applied != 3 {
		t.Fatalf("unexpected warnings: %+v", res.Warnings)
	}
}

func TestMergeFlagsUnavailableProducts(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.AddItem(ctx, UserIdentity("u-x"), AddItemInput{ProductID: "p-mango", Quantity: 4}); err != nil {
		t.Fatalf("user add: %v", err)
	}
	if _, err := h.svc.AddItem(ctx, GuestIdentity("tok-x"), AddItemInput{ProductID: "p-mango", Quantity: 3}); err != nil {
		t.Fatalf("guest add: %v", err)
	}
	if _, err := h.svc.AddItem(ctx, GuestIdentity("tok-x"), AddItemInput{ProductID: "p-rice", Quantity: 2}); err != nil {
		t.Fatalf("guest add: %v", err)
	}
	delete(h.catalog.products, "p-mango")
	h.catalog.products["p-rice"].IsActive = false

	res, err := h.svc.MergeGuestIntoUser(ctx, "tok-x", "u-x")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(res.Cart.Items) != 2 {
		t.Fatalf("unavailable lines must still be merged, got %+v", res.Cart.Items)
	}
	if res.Cart.Items[0].Quantity != 5 {
		t.Fatalf("expected the saved maximum 5 for a product gone from the catalog, got %d", res.Cart.Items[0].Quantity)
	}
	if res.Cart.Items[1].Quantity != 2 {
		t.Fatalf("expected inactive line copied as is, got %d", res.Cart.Items[1].Quantity)
	}

	counts := map[enums.CartItemWarningType]int{}
	for _, w := range res.Warnings {
		counts[w.Type]++
	}
	if counts[enums.CartItemWarningTypeClampedToMax] != 1 || counts[enums.CartItemWarningTypeNotAvailable] != 2 {
		t.Fatalf("unexpected warnings: %+v", res.Warnings)
	}
}

func TestMergeFailsWhenCatalogIsDown(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.AddItem(ctx, GuestIdentity("tok-f"), AddItemInput{ProductID: "p-rice", Quantity: 2}); err != nil {
		t.Fatalf("guest add: %v", err)
	}
	h.catalog.err = errors.New("catalog timeout")

	if _, err := h.svc.MergeGuestIntoUser(ctx, "tok-f", "u-f"); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if _, ok := h.repo.stored("guest:tok-f"); !ok {
		t.Fatal("guest cart must survive a failed merge")
	}
}

func TestMergeSumsMatchingLines(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.AddItem(ctx, UserIdentity("u-s"), AddItemInput{ProductID: "p-rice", Quantity: 3}); err != nil {
		t.Fatalf("user add: %v", err)
	}
	if _, err := h.svc.AddItem(ctx, GuestIdentity("tok-s"), AddItemInput{ProductID: "p-rice", Quantity: 2}); err != nil {
		t.Fatalf("guest add: %v", err)
	}

	res, err := h.svc.MergeGuestIntoUser(ctx, "tok-s", "u-s")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(res.Cart.Items) != 1 || res.Cart.Items[0].Quantity != 5 {
		t.Fatalf("expected {p-rice: 5}, got %+v", res.Cart.Items)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("expected no warnings, got %+v", res.Warnings)
	}
	assertTotalsInvariant(t, res.Cart)
}

func TestMergeClampsToMaximumWithWarning(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.AddItem(ctx, UserIdentity("u-c"), AddItemInput{ProductID: "p-mango", Quantity: 3}); err != nil {
		t.Fatalf("user add: %v", err)
	}
	if _, err := h.svc.AddItem(ctx, GuestIdentity("tok-c"), AddItemInput{ProductID: "p-mango", Quantity: 4}); err != nil {
		t.Fatalf("guest add: %v", err)
	}

	res, err := h.svc.MergeGuestIntoUser(ctx, "tok-c", "u-c")
	if err != nil {
		t.Fatalf("merge must not fail on overflow: %v", err)
	}
	if res.Cart.Items[0].Quantity != 5 {
		t.Fatalf("expected clamp to 5, got %d", res.Cart.Items[0].Quantity)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning, got %+v", res.Warnings)
	}
	w := res.Warnings[0]
	if w.Type != enums.CartItemWarningTypeClampedToMax || w.Requested != 7 || w.Applied != 5 || w.ProductID != "p-mango" {
		t.Fatalf("unexpected warning: %+v", w)
	}
	assertTotalsInvariant(t, res.Cart)
}

func TestMergeKeepsDistinctIdentityKeysApart(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.AddItem(ctx, UserIdentity("u-k"), AddItemInput{ProductID: "p-rice", Quantity: 1}); err != nil {
		t.Fatalf("user add: %v", err)
	}
	if _, err := h.svc.AddItem(ctx, GuestIdentity("tok-k"), AddItemInput{ProductID: "p-rice", Quantity: 1, OrderType: enums.OrderTypeGroup, GroupOrderID: strPtr("go-1")}); err != nil {
		t.Fatalf("guest add: %v", err)
	}

	res, err := h.svc.MergeGuestIntoUser(ctx, "tok-k", "u-k")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(res.Cart.Items) != 2 {
		t.Fatalf("priority and group lines must stay separate, got %+v", res.Cart.Items)
	}
	if res.Cart.Items[1].ExpiresAt == nil || !res.Cart.Items[1].ExpiresAt.Equal(testDeadline) {
		t.Fatal("expected group expiry carried over")
	}
}

func TestMergeWithoutGuestCart(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	res, err := h.svc.MergeGuestIntoUser(context.Background(), "tok-none", "u-none")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if res.Cart == nil || res.Cart.ID != "user:u-none" || len(res.Cart.Items) != 0 {
		t.Fatalf("expected empty user cart, got %+v", res.Cart)
	}
	if _, ok := h.repo.stored("user:u-none"); !ok {
		t.Fatal("expected user cart created")
	}
}

func TestMergeRequiresBothIdentities(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.svc.MergeGuestIntoUser(ctx, "", "u-1"); !pkgerrors.HasCode(err, pkgerrors.CodeInvalidIdentity) {
		t.Fatalf("expected invalid identity without guest token, got %v", err)
	}
	if _, err := h.svc.MergeGuestIntoUser(ctx, "tok-1", " "); !pkgerrors.HasCode(err, pkgerrors.CodeInvalidIdentity) {
		t.Fatalf("expected invalid identity without user id, got %v", err)
	}
}

func TestMergeItemsUnit(t *testing.T) {
	t.Parallel()

	userLine := Item{ID: uuid.New(), ProductID: "p1", OrderType: enums.OrderTypePriority, Quantity: 4, MaxOrderQty: intPtr(6)}
	dst := &Cart{Items: []Item{userLine}}
	incoming := []Item{
		{ID: uuid.New(), ProductID: "p1", OrderType: enums.OrderTypePriority, Quantity: 1},
		{ID: uuid.New(), ProductID: "p2", OrderType: enums.OrderTypePriority, Quantity: 2},
		{ID: uuid.New(), ProductID: "p1", OrderType: enums.OrderTypePriority, Quantity: 3},
	}
	fixed := uuid.MustParse("3f1a2b4c-0000-4000-8000-000000000001")

	warnings := mergeItems(dst, incoming, nil, func() uuid.UUID { return fixed })

	if len(dst.Items) != 2 {
		t.Fatalf("expected two lines, got %d", len(dst.Items))
	}
	if dst.Items[0].Quantity != 6 || dst.Items[0].ID != userLine.ID {
		t.Fatalf("expected user line clamped to 6 keeping its id, got %+v", dst.Items[0])
	}
	if dst.Items[1].ID != fixed || dst.Items[1].Quantity != 2 {
		t.Fatalf("expected copied line with fresh id, got %+v", dst.Items[1])
	}
	if len(warnings) != 1 || warnings[0].Requested != 8 || warnings[0].Applied != 6 {
		t.Fatalf("unexpected warnings: %+v", warnings)
	}
}

func TestClampToMax(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		qty, floor  int
		max         *int
		want        int
		wantClamped bool
	}{
		{"no max", 10, 1, nil, 10, false},
		{"under max", 3, 1, intPtr(5), 3, false},
		{"at max", 5, 1, intPtr(5), 5, false},
		{"over max", 7, 1, intPtr(5), 5, true},
		{"max below floor", 7, 4, intPtr(3), 4, true},
	}
	for _, tc := range cases {
		got, clamped := clampToMax(tc.qty, tc.floor, tc.max)
		if got != tc.want || clamped != tc.wantClamped {
			t.Fatalf("%s: got (%d,%v) want (%d,%v)", tc.name, got, clamped, tc.want, tc.wantClamped)
		}
	}
}
