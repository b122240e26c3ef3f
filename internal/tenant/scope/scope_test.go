package scope

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atrium/internal/tenant/models"
)

func TestCurrent_AbsentByDefault(t *testing.T) {
	_, ok := Current(context.Background())
	assert.False(t, ok)

	_, ok = CompanyID(context.Background())
	assert.False(t, ok)
}

func TestWithCurrent_RoundTrip(t *testing.T) {
	ctx := WithCurrent(context.Background(), &models.Descriptor{CompanyID: 7, CompanyName: "Acme"})

	d, ok := Current(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), d.CompanyID)

	id, ok := CompanyID(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestWithCurrent_DoesNotLeakAcrossRequests(t *testing.T) {
	// Two "requests" resolve different tenants concurrently; each context must
	// only ever observe its own descriptor.
	base := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		companyID := int64(i%2)*2 + 3 // 3 or 5
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := WithCurrent(base, &models.Descriptor{CompanyID: companyID})
			got, ok := CompanyID(ctx)
			assert.True(t, ok)
			assert.Equal(t, companyID, got)
		}()
	}
	wg.Wait()

	_, ok := Current(base)
	assert.False(t, ok, "parent context must stay unbound")
}
