package marketflow

import "testing"

func testConfig(seed int64) Config {
	return Config{
		NSteps:            50,
		InitialPrice:      100,
		InitialX:          100,
		InitialY:          10000,
		GBMMu:             0,
		GBMSigma:          0.01,
		GBMDt:             1,
		RetailArrivalRate: 0.8,
		RetailMeanSize:    2,
		RetailSizeSigma:   0.5,
		RetailBuyProb:     0.5,
		Seed:              seed,
	}
}

func TestRunIsDeterministicForSameSeed(t *testing.T) {
	a := New(testConfig(42)).Run()
	b := New(testConfig(42)).Run()

	if len(a) != len(b) {
		t.Fatalf("expected equal-length sequences, got %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Side != b[i].Side || !a[i].SizeX.Equal(b[i].SizeX) || a[i].Timestamp != b[i].Timestamp {
			t.Fatalf("order %d diverged: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestRunDiffersForDifferentSeeds(t *testing.T) {
	a := New(testConfig(1)).Run()
	b := New(testConfig(2)).Run()

	if len(a) == len(b) {
		identical := true
		for i := range a {
			if !a[i].SizeX.Equal(b[i].SizeX) {
				identical = false
				break
			}
		}
		if identical {
			t.Fatal("expected different seeds to diverge")
		}
	}
}

func TestOrdersHaveIncreasingTimestamps(t *testing.T) {
	orders := New(testConfig(7)).Run()
	last := int64(-1)
	for _, o := range orders {
		if o.Timestamp <= last {
			t.Fatalf("timestamps must strictly increase, got %d after %d", o.Timestamp, last)
		}
		last = o.Timestamp
	}
}
