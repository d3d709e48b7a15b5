// Copyright 2025 The webcrypto Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webcrypto_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Aconitin/webcrypto"
)

func TestResultResolves(t *testing.T) {
	r, complete := webcrypto.NewResult[int]()
	go complete(42, nil)
	got, err := r.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() err = %v, want nil", err)
	}
	if got != 42 {
		t.Errorf("Wait() = %d, want 42", got)
	}
}

func TestResultRejects(t *testing.T) {
	r, complete := webcrypto.NewResult[int]()
	wantErr := errors.New("boom")
	complete(0, wantErr)
	if _, err := r.Wait(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Wait() err = %v, want %v", err, wantErr)
	}
}

func TestResultSingleResolution(t *testing.T) {
	r, complete := webcrypto.NewResult[int]()
	complete(1, nil)
	complete(2, nil)
	got, err := r.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() err = %v, want nil", err)
	}
	if got != 1 {
		t.Errorf("Wait() = %d, want the first completion", got)
	}
}

func TestResultWaitHonorsContext(t *testing.T) {
	r, complete := webcrypto.NewResult[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := r.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() err = %v, want deadline exceeded", err)
	}
	// The result is still retrievable after the wait was abandoned.
	complete(7, nil)
	got, err := r.Wait(context.Background())
	if err != nil || got != 7 {
		t.Errorf("Wait() = (%d, %v), want (7, nil)", got, err)
	}
}

func TestResultDone(t *testing.T) {
	r, complete := webcrypto.NewResult[string]()
	select {
	case <-r.Done():
		t.Fatal("Done() closed before completion")
	default:
	}
	complete("ok", nil)
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after completion")
	}
}
