package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestTaskID_String verifies generated ids are distinct and printable
func TestTaskID_String(t *testing.T) {
	// Arrange
	var zero TaskID

	// Act
	a, b := GenerateTaskID(), GenerateTaskID()

	// Assert
	if a == zero || a == b {
		t.Fatalf("GenerateTaskID() returned zero or duplicate ids: %s %s", a, b)
	}
	if len(a.String()) != 36 {
		t.Errorf("String() = %q, want canonical uuid form", a.String())
	}
}

// TestGetCurrentTaskID verifies extracting the task id from context
// Given: A plain context and a context carrying a TaskID
// When: GetCurrentTaskID is called
// Then: It reports false for the plain context and the stored id otherwise
func TestGetCurrentTaskID(t *testing.T) {
	// Arrange, Act and Assert - plain context
	if _, ok := GetCurrentTaskID(context.Background()); ok {
		t.Fatal("GetCurrentTaskID(background) reported an id")
	}

	// Arrange
	id := GenerateTaskID()
	ctx := WithTaskID(context.Background(), id)

	// Act
	got, ok := GetCurrentTaskID(ctx)

	// Assert
	if !ok || got != id {
		t.Fatalf("GetCurrentTaskID() = %s, %v, want %s, true", got, ok, id)
	}
}

// TestHandle_ResolvesOnce verifies only the first Resolve takes effect
// Given: An unresolved handle
// When: Resolve is called twice with different errors
// Then: Wait keeps returning the first error
func TestHandle_ResolvesOnce(t *testing.T) {
	// Arrange
	h := NewHandle(GenerateTaskID())
	first := errors.New("first")

	if h.Err() != nil {
		t.Fatal("Err() on unresolved handle should be nil")
	}

	// Act
	h.Resolve(first)
	h.Resolve(errors.New("second"))

	// Assert
	if err := h.Wait(); err != first {
		t.Errorf("Wait() = %v, want %v", err, first)
	}
	if err := h.Wait(); err != first {
		t.Errorf("second Wait() = %v, want %v", err, first)
	}
	if err := h.Err(); err != first {
		t.Errorf("Err() = %v, want %v", err, first)
	}
}

// TestHandle_ConcurrentWaiters verifies every waiter is released by one Resolve
func TestHandle_ConcurrentWaiters(t *testing.T) {
	h := NewHandle(GenerateTaskID())

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- h.Wait()
		}()
	}

	time.Sleep(5 * time.Millisecond)
	h.Resolve(nil)
	wg.Wait()
	close(results)

	for err := range results {
		if err != nil {
			t.Errorf("Wait() = %v, want nil", err)
		}
	}
}

// TestTaskError_Matching verifies TaskError unwraps and matches ErrTaskFailure
func TestTaskError_Matching(t *testing.T) {
	cause := errors.New("cause")
	returned := &TaskError{ID: GenerateTaskID(), Err: cause}
	panicked := &TaskError{ID: GenerateTaskID(), Panic: "boom"}

	if !errors.Is(returned, ErrTaskFailure) || !errors.Is(returned, cause) {
		t.Errorf("returned-error TaskError does not match its causes: %v", returned)
	}
	if !errors.Is(panicked, ErrTaskFailure) {
		t.Errorf("panic TaskError does not match ErrTaskFailure: %v", panicked)
	}
	if errors.Is(panicked, ErrPoolClosed) {
		t.Error("TaskError should not match ErrPoolClosed")
	}

	var te *TaskError
	if !errors.As(errors.Join(errors.New("other"), panicked), &te) || te.Panic != "boom" {
		t.Error("errors.As did not find the joined TaskError")
	}
}
