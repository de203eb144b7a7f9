package mongodb

import (
	"context"
	"testing"
)

func TestConnectRequiresURI(t *testing.T) {
	if _, err := Connect(context.Background(), Options{}); err == nil {
		t.Fatal("expected error without uri")
	}
	if Connected() {
		t.Fatal("client should not be connected after failure")
	}
}

func TestDisconnectWithoutClientIsNoop(t *testing.T) {
	if err := Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect returned error: %v", err)
	}
}
