package core

import (
	"go/types"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestDataServiceImplementationsHardening ensures only sanctioned packages
// provide concrete implementations of the domain.DataService interface, so
// additional backends cannot drift in outside the vetted driver locations
// without an explicit test update.
func TestDataServiceImplementationsHardening(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedTypes, Tests: true}
	pkgs, err := packages.Load(cfg, "recordcore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	var dataService *types.Interface
	for _, p := range pkgs {
		if p.PkgPath == "recordcore/pkg/domain" {
			obj := p.Types.Scope().Lookup("DataService")
			if obj == nil {
				t.Fatalf("domain.DataService not found")
			}
			iface, ok := obj.Type().Underlying().(*types.Interface)
			if !ok {
				t.Fatalf("domain.DataService is not an interface")
			}
			dataService = iface
		}
	}
	if dataService == nil {
		t.Fatalf("failed to resolve DataService interface")
	}
	allowed := map[string]struct{}{
		"recordcore/internal/infra/dataservice/memory":   {},
		"recordcore/internal/infra/dataservice/sqlite":   {},
		"recordcore/internal/infra/dataservice/postgres": {},
		// Test fakes and the caching lookup resolver live in this package.
		"recordcore/internal/core": {},
	}
	var unexpected []string
	for _, p := range pkgs {
		if p.Types == nil || p.Types.Scope() == nil {
			continue
		}
		for _, name := range p.Types.Scope().Names() {
			obj := p.Types.Scope().Lookup(name)
			named, ok := obj.Type().(*types.Named)
			if !ok {
				continue
			}
			if _, ok := named.Underlying().(*types.Struct); !ok {
				continue
			}
			if types.Implements(types.NewPointer(named), dataService) {
				if _, ok := allowed[p.PkgPath]; !ok {
					unexpected = append(unexpected, p.PkgPath+"."+name)
				}
			}
		}
	}
	if len(unexpected) > 0 {
		t.Fatalf("unexpected DataService implementations (update the allowed list intentionally when adding a backend): %v", unexpected)
	}
}
