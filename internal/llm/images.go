package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// GenerateImage renders one image from a prompt and writes it to outputPath.
// The provider returns images as base64 data URLs on the message.
func (c *Client) GenerateImage(ctx context.Context, prompt, outputPath string) error {
	resp, err := c.chat(ctx, chatRequest{
		Model:      c.imageModel,
		Messages:   []chatMessage{{Role: "user", Content: prompt}},
		Modalities: []string{"image", "text"},
	})
	if err != nil {
		return err
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Images) == 0 {
		return errors.New("no images in llm response")
	}

	dataURL := resp.Choices[0].Message.Images[0].ImageURL.URL
	if !strings.HasPrefix(dataURL, "data:") {
		return fmt.Errorf("unexpected image url form: %s", truncate(dataURL, 60))
	}

	_, encoded, ok := strings.Cut(dataURL, ",")
	if !ok {
		return errors.New("malformed image data url")
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("failed to decode image data: %w", err)
	}

	if err := os.WriteFile(outputPath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

// GenerateImages renders a batch of prompts concurrently, keyed by output
// path. Failures are collected per prompt; successfully written paths are
// returned even when some prompts fail.
func (c *Client) GenerateImages(ctx context.Context, prompts map[string]string, maxConcurrent int) ([]string, error) {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		paths []string
		errs  []error
	)
	sem := make(chan struct{}, maxConcurrent)

	for outputPath, prompt := range prompts {
		wg.Add(1)
		go func(outputPath, prompt string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			err := c.GenerateImage(ctx, prompt, outputPath)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", outputPath, err))
				return
			}
			paths = append(paths, outputPath)
		}(outputPath, prompt)
	}
	wg.Wait()

	return paths, errors.Join(errs...)
}
