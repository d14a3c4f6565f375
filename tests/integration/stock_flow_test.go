package integration

import (
	"sync"
	"testing"
)

// TestReserveReleaseFulfillFlow walks the reservation protocol end to end:
// reserve part of the stock, release some of it, fulfill the rest.
func TestReserveReleaseFulfillFlow(t *testing.T) {
	skipIfNotRunning(t, catalogPort)

	product := createTestProduct(t, uniqueName("Flow Tee"), 2500, []map[string]interface{}{
		{"color": "navy", "size": "M", "stock": 10},
	})
	variantID := firstVariantID(t, product)
	variantURL := baseURL(catalogPort) + "/api/v1/variants/" + variantID

	status, data := httpPost(t, variantURL+"/reserve", map[string]interface{}{"quantity": 3})
	requireStatus(t, status, 200)
	if got := extractFloat(t, data, "stock.reserved"); got != 3 {
		t.Fatalf("expected reserved 3 after reserve, got %v", got)
	}
	if got := extractFloat(t, data, "stock.available"); got != 7 {
		t.Fatalf("expected available 7 after reserve, got %v", got)
	}

	status, data = httpPost(t, variantURL+"/release", map[string]interface{}{"quantity": 1})
	requireStatus(t, status, 200)
	if got := extractFloat(t, data, "stock.reserved"); got != 2 {
		t.Fatalf("expected reserved 2 after release, got %v", got)
	}

	status, data = httpPost(t, variantURL+"/fulfill", map[string]interface{}{"quantity": 2})
	requireStatus(t, status, 200)
	if got := extractFloat(t, data, "stock.stock"); got != 8 {
		t.Fatalf("expected stock 8 after fulfill, got %v", got)
	}
	if got := extractFloat(t, data, "stock.reserved"); got != 0 {
		t.Fatalf("expected reserved 0 after fulfill, got %v", got)
	}
}

// TestReserveBeyondStockConflicts verifies the insufficient-stock contract.
func TestReserveBeyondStockConflicts(t *testing.T) {
	skipIfNotRunning(t, catalogPort)

	product := createTestProduct(t, uniqueName("Scarce Tee"), 2500, []map[string]interface{}{
		{"color": "red", "size": "S", "stock": 2},
	})
	variantID := firstVariantID(t, product)

	status, data := httpPost(t, baseURL(catalogPort)+"/api/v1/variants/"+variantID+"/reserve",
		map[string]interface{}{"quantity": 5})
	requireStatus(t, status, 409)

	if code := extractString(t, data, "code"); code != "INSUFFICIENT_STOCK" {
		t.Fatalf("expected code INSUFFICIENT_STOCK, got %q", code)
	}
}

// TestConcurrentReserveLastUnits races two reservations for the last units of
// stock. The conditional update must let exactly one claim them.
func TestConcurrentReserveLastUnits(t *testing.T) {
	skipIfNotRunning(t, catalogPort)

	product := createTestProduct(t, uniqueName("Race Tee"), 2500, []map[string]interface{}{
		{"color": "black", "size": "M", "stock": 5},
	})
	variantID := firstVariantID(t, product)
	reserveURL := baseURL(catalogPort) + "/api/v1/variants/" + variantID + "/reserve"

	type result struct {
		status int
		err    error
	}
	results := make(chan result, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := rawJSONRequest("POST", reserveURL, map[string]interface{}{"quantity": 5}, nil)
			results <- result{status: status, err: err}
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, conflicted int
	for r := range results {
		if r.err != nil {
			t.Fatalf("concurrent reserve request failed: %v", r.err)
		}
		switch r.status {
		case 200:
			succeeded++
		case 409:
			conflicted++
		default:
			t.Fatalf("unexpected status %d from concurrent reserve", r.status)
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Fatalf("expected exactly one winner and one conflict, got %d winners / %d conflicts", succeeded, conflicted)
	}

	status, data := httpGet(t, baseURL(catalogPort)+"/api/v1/variants/"+variantID)
	requireStatus(t, status, 200)
	if got := extractFloat(t, data, "variant.reserved_stock"); got != 5 {
		t.Fatalf("expected reserved_stock 5 after the race, got %v", got)
	}
}

// TestAdjustStockRequiresAdmin verifies the stock-correction endpoint is
// admin-only and applies the delta when authorized.
func TestAdjustStockRequiresAdmin(t *testing.T) {
	skipIfNotRunning(t, catalogPort)

	product := createTestProduct(t, uniqueName("Adjust Tee"), 2500, []map[string]interface{}{
		{"color": "grey", "size": "L", "stock": 10},
	})
	variantID := firstVariantID(t, product)
	adjustURL := baseURL(catalogPort) + "/api/v1/variants/" + variantID + "/adjust"

	status, _ := httpPost(t, adjustURL, map[string]interface{}{"delta": -4})
	requireStatus(t, status, 403)

	status, data := httpPostWithHeaders(t, adjustURL, map[string]interface{}{"delta": -4}, adminHeaders())
	requireStatus(t, status, 200)
	if got := extractFloat(t, data, "stock.stock"); got != 6 {
		t.Fatalf("expected stock 6 after adjustment, got %v", got)
	}
}

// TestStorefrontStockCheck verifies the aggregate availability endpoint with
// a partial attribute filter.
func TestStorefrontStockCheck(t *testing.T) {
	skipIfNotRunning(t, catalogPort)

	product := createTestProduct(t, uniqueName("Check Tee"), 1500, []map[string]interface{}{
		{"color": "red", "size": "S", "stock": 3},
		{"color": "red", "size": "M", "stock": 4},
	})
	productID, ok := product["id"].(string)
	if !ok || productID == "" {
		t.Fatalf("expected product id, got %v", product["id"])
	}

	status, data := httpGet(t, baseURL(catalogPort)+"/api/v1/products/"+productID+"/stock?color=red")
	requireStatus(t, status, 200)

	if got := extractFloat(t, data, "stock"); got != 7 {
		t.Fatalf("expected summed stock 7 for color=red, got %v", got)
	}
	if avail := extractField(data, "available"); avail != true {
		t.Fatalf("expected available true, got %v", avail)
	}
}
