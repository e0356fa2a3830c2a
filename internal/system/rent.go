package system

// AccountStorageOverhead is the per-account metadata charged as if it were data.
const AccountStorageOverhead = 128

// Rent prices account storage. An account holding MinimumBalance for its size
// is exempt from rent collection for the life of the account.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  uint64
}

var DefaultRent = Rent{
	LamportsPerByteYear: 3480,
	ExemptionThreshold:  2,
}

func (r Rent) MinimumBalance(size uint64) uint64 {
	return (AccountStorageOverhead + size) * r.LamportsPerByteYear * r.ExemptionThreshold
}
