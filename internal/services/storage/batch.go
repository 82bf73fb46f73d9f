package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/phambaophuc/image-watermark/internal/models"
)

const uploadWorkers = 5

// UploadMultiple uploads files concurrently and reports a result per file, in
// input order. The error names every file that failed; results for the files
// that succeeded are still returned.
func (s *StorageService) UploadMultiple(ctx context.Context, files []models.UploadFile) ([]models.UploadResult, error) {
	results := make([]models.UploadResult, len(files))
	if len(files) == 0 {
		return results, nil
	}

	jobs := make(chan int, len(files))
	var wg sync.WaitGroup

	for w := 0; w < min(uploadWorkers, len(files)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.uploadOne(ctx, files[i])
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	var failed []string
	for _, r := range results {
		if r.Error != "" {
			failed = append(failed, r.Filename+": "+r.Error)
		}
	}
	if len(failed) > 0 {
		return results, fmt.Errorf("failed to upload %d of %d files: %s",
			len(failed), len(files), strings.Join(failed, "; "))
	}

	return results, nil
}

func (s *StorageService) uploadOne(ctx context.Context, file models.UploadFile) models.UploadResult {
	result := models.UploadResult{Filename: file.Filename}
	if err := ctx.Err(); err != nil {
		result.Error = err.Error()
		return result
	}

	url, err := s.Upload(ctx, bytes.NewBuffer(file.Data), file.Filename, file.ContentType)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.URL = url
	return result
}
