// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

// Package gcs publishes finished data assets to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ContentTypeParquet is set on uploaded assets.
const ContentTypeParquet = "application/x-parquet"

type Publisher struct {
	client     *storage.Client
	bucketName string
}

// NewPublisher connects to bucketName. An empty credsFile falls back to
// application default credentials.
func NewPublisher(ctx context.Context, bucketName string, credsFile string, opts ...option.ClientOption) (*Publisher, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &Publisher{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// URL returns the gs:// location of object in bucket.
func URL(bucket, object string) string {
	return "gs://" + path.Join(bucket, object)
}

// Upload copies the file at localPath to object and attaches metadata. It
// returns the gs:// URL of the object.
func (p *Publisher) Upload(ctx context.Context, localPath, object string, metadata map[string]string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open asset: %w", err)
	}
	defer f.Close()

	writer := p.client.Bucket(p.bucketName).Object(object).NewWriter(ctx)
	writer.ContentType = ContentTypeParquet
	writer.Metadata = metadata

	if _, err := io.Copy(writer, f); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to upload %s: %w", object, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload of %s: %w", object, err)
	}
	return URL(p.bucketName, object), nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
