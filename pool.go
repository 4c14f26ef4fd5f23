package kinetic

import "sync"

// task runs fn over data on up to workers goroutines, in contiguous chunks.
func task[T any](workers int, data []T, fn func(data T)) {
	if workers <= 1 || len(data) <= 1 {
		for _, d := range data {
			fn(d)
		}
		return
	}

	var wg sync.WaitGroup
	dataSize := len(data)
	workers = min(workers, dataSize)
	chunkSize := (dataSize + workers - 1) / workers

	for workerID := 0; workerID < workers; workerID++ {
		start := workerID * chunkSize
		end := min(start+chunkSize, dataSize)
		if start >= end {
			break
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(data[i])
			}
		}(start, end)
	}
	wg.Wait()
}
