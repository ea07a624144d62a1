package sample

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"amp-whale-tracker/internal/domain/entity"
	"amp-whale-tracker/internal/domain/repository"
)

// exchangeAddresses are well-known hot wallets used as transfer endpoints.
var exchangeAddresses = []string{
	"0x47ac0Fb4F2D84898e4D9E7b4DaB3C24507a6D503",
	"0x8894E0a0c962CB723c1976a4421c95949bE2D4E3",
	"0x28C6c06298d514Db089934071355E5743bf21d60",
	"0x21a31Ee1afC51d94C2eFcCAa2092aD1028285549",
	"0xDFd5293D8e347dFe59E90eFd55b2956a1343963d",
	"0x56Eddb7aa87536c09CCc2793473599fD21A8b17F",
	"0x9696f59E4d72E237BE84fFD425DCaD154Bf96976",
	"0x503828976D22510aad0201ac7EC88293211D23Da",
	"0xA9D1e08C7793af67e9d92fe308d5697FB81d3E43",
	"0x6262998Ced04146fA42253a5C0AF90CA02dfd2A3",
}

const hexDigits = "0123456789abcdef"

// Generator produces plausible whale transfers without a live endpoint. It
// implements the transfer repository so the rest of the pipeline runs
// unchanged in demos and development.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a sample transfer source. A zero seed derives one
// from the current time.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

var _ repository.TransferRepository = (*Generator)(nil)

// WhaleTransfers generates a batch of transfers matching the given
// parameters, newest first.
func (g *Generator) WhaleTransfers(_ context.Context, params entity.QueryParams) ([]*entity.WhaleTransfer, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	count := 30 + g.rng.Intn(40)
	if count > params.Limit {
		count = params.Limit
	}

	transfers := make([]*entity.WhaleTransfer, 0, count)
	for i := 0; i < count; i++ {
		transfers = append(transfers, g.transfer(params))
	}
	sort.Slice(transfers, func(i, j int) bool {
		return transfers[i].BlockTimestamp.After(transfers[j].BlockTimestamp)
	})
	return transfers, nil
}

// TopAddresses aggregates a generated batch by sender, repeat senders only,
// ordered by total volume.
func (g *Generator) TopAddresses(_ context.Context, params entity.QueryParams) ([]*entity.AddressAggregate, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	batch := params
	batch.Limit = entity.MaxLimit
	transfers, err := g.WhaleTransfers(context.Background(), batch)
	if err != nil {
		return nil, err
	}

	bySender := make(map[string]*entity.AddressAggregate)
	for _, t := range transfers {
		agg, ok := bySender[t.FromAddress]
		if !ok {
			agg = &entity.AddressAggregate{Address: t.FromAddress}
			bySender[t.FromAddress] = agg
		}
		agg.TransferCount++
		agg.TotalEthSent += t.EthAmount
		if t.EthAmount > agg.LargestTransfer {
			agg.LargestTransfer = t.EthAmount
		}
	}

	aggregates := make([]*entity.AddressAggregate, 0, len(bySender))
	for _, agg := range bySender {
		if agg.TransferCount < 2 {
			continue
		}
		agg.AvgEthPerTransfer = agg.TotalEthSent / float64(agg.TransferCount)
		aggregates = append(aggregates, agg)
	}
	sort.Slice(aggregates, func(i, j int) bool {
		return aggregates[i].TotalEthSent > aggregates[j].TotalEthSent
	})
	if len(aggregates) > params.Limit {
		aggregates = aggregates[:params.Limit]
	}
	return aggregates, nil
}

// transfer builds one random transfer. Amounts follow a long tail so most
// sit near the threshold with the occasional outlier. Caller holds the lock.
func (g *Generator) transfer(params entity.QueryParams) *entity.WhaleTransfer {
	amount := params.MinEth + g.rng.Float64()*g.rng.Float64()*(5000-params.MinEth)
	if amount < params.MinEth {
		amount = params.MinEth
	}
	gasGwei := 10 + g.rng.Float64()*90
	gasUsed := int64(21000 + g.rng.Intn(479001))

	windowSeconds := int64(params.WindowHours) * 3600
	age := time.Duration(g.rng.Int63n(windowSeconds)) * time.Second

	from := exchangeAddresses[g.rng.Intn(len(exchangeAddresses))]
	to := exchangeAddresses[g.rng.Intn(len(exchangeAddresses))]
	for to == from {
		to = exchangeAddresses[g.rng.Intn(len(exchangeAddresses))]
	}

	return &entity.WhaleTransfer{
		BlockTimestamp:  g.now().Add(-age).UTC(),
		BlockNumber:     21000000 + g.rng.Int63n(100000),
		TransactionHash: g.txHash(),
		FromAddress:     from,
		ToAddress:       to,
		EthAmount:       amount,
		GasGwei:         gasGwei,
		GasUsed:         gasUsed,
		GasFeeEth:       gasGwei * float64(gasUsed) / 1e9,
	}
}

// txHash builds a random transaction hash. Caller holds the lock.
func (g *Generator) txHash() string {
	buf := make([]byte, 0, 66)
	buf = append(buf, '0', 'x')
	for i := 0; i < 64; i++ {
		buf = append(buf, hexDigits[g.rng.Intn(len(hexDigits))])
	}
	return string(buf)
}
