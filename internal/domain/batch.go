package domain

import "fmt"

// Batch is a group of accounts processed together under bounded parallelism.
type Batch struct {
	Number   int
	Accounts []Account
}

// Partition splits accounts into consecutive batches of at most size
// accounts, preserving roster order.
func Partition(accounts []Account, size int) ([]Batch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}

	batches := make([]Batch, 0, (len(accounts)+size-1)/size)
	for start := 0; start < len(accounts); start += size {
		end := min(start+size, len(accounts))
		batches = append(batches, Batch{
			Number:   len(batches) + 1,
			Accounts: accounts[start:end],
		})
	}

	return batches, nil
}
