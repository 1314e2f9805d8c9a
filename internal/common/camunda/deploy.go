package camunda

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// BPMNFiles lists the .bpmn files directly inside dir, sorted by name. A
// missing directory yields no files.
func BPMNFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read bpmn dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".bpmn") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

// DeployDir deploys every process model in dir and returns how many the
// broker accepted. Each file goes in its own command so one bad model does
// not block the rest.
func (c *Client) DeployDir(ctx context.Context, dir string) (int, error) {
	files, err := BPMNFiles(dir)
	if err != nil {
		return 0, err
	}
	deployed := 0
	var firstErr error
	for _, f := range files {
		_, err := withRetry(ctx, c.config, "deploy:"+filepath.Base(f), func(ctx context.Context) (int64, error) {
			reqCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
			defer cancel()
			resp, err := c.client.NewDeployResourceCommand().AddResourceFile(f).Send(reqCtx)
			if err != nil {
				return 0, err
			}
			return resp.GetKey(), nil
		})
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("deploy %s: %w", filepath.Base(f), err)
			}
			continue
		}
		deployed++
	}
	return deployed, firstErr
}
