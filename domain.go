// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package reqresp

import "sync"

// Domain is the namespace in which services and their shared slot memory
// live. Nodes in the same domain see the same services by name.
type Domain struct {
	mu       sync.Mutex
	services map[string]*serviceState
}

var defaultDomain = NewDomain()

// NewDomain creates an empty, isolated domain.
func NewDomain() *Domain {
	return &Domain{services: make(map[string]*serviceState)}
}

// DefaultDomain returns the process-wide domain used by nodes created
// without [WithDomain].
func DefaultDomain() *Domain {
	return defaultDomain
}

// NumberOfServices returns the number of live services in the domain.
func (d *Domain) NumberOfServices() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.services)
}

// release drops one handle of st and removes the service with the last one.
func (d *Domain) release(st *serviceState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	st.handles--
	if st.handles == 0 && d.services[st.name.String()] == st {
		delete(d.services, st.name.String())
	}
}
