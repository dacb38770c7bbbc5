package grpcserver

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestServiceDescMatchesProto(t *testing.T) {
	path := filepath.Join("..", "..", "..", "..", "protos", serviceDesc.Metadata.(string))
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read proto: %v", err)
	}
	src := string(raw)

	if m := regexp.MustCompile(`(?m)^package ([\w.]+);`).FindStringSubmatch(src); m == nil || m[1]+".SlotService" != ServiceName {
		t.Fatalf("proto package does not match %s: %v", ServiceName, m)
	}
	var rpcs []string
	for _, m := range regexp.MustCompile(`rpc (\w+)\(google\.protobuf\.Struct\) returns \(google\.protobuf\.Struct\)`).FindAllStringSubmatch(src, -1) {
		rpcs = append(rpcs, m[1])
	}
	if len(rpcs) != len(serviceDesc.Methods) {
		t.Fatalf("expected %d rpcs, proto declares %v", len(serviceDesc.Methods), rpcs)
	}
	for i, md := range serviceDesc.Methods {
		if rpcs[i] != md.MethodName {
			t.Fatalf("method %d: desc has %s, proto has %s", i, md.MethodName, rpcs[i])
		}
	}
}
