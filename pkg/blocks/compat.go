package blocks

import "sync"

const (
	ClientOutlook = "outlook"
	ClientGmail   = "gmail"
)

// outlookSupport lists the properties the Word based Outlook engine lacks.
// display and backgroundImage have fallbacks; the rest are emitted as is.
var outlookSupport = map[string]ClientSupport{
	"display":             {Supported: false, Fallback: "block"},
	"backgroundImage":     {Supported: false, Fallback: "none"},
	"flex":                {Supported: false},
	"flexDirection":       {Supported: false},
	"flexWrap":            {Supported: false},
	"justifyContent":      {Supported: false},
	"alignItems":          {Supported: false},
	"alignSelf":           {Supported: false},
	"gap":                 {Supported: false},
	"gridTemplateColumns": {Supported: false},
	"borderRadius":        {Supported: false},
	"boxShadow":           {Supported: false},
	"maxWidth":            {Supported: false},
}

// Compatibility holds the per client capability matrix
type Compatibility struct {
	mu      sync.RWMutex
	clients map[string]map[string]ClientSupport
}

// NewCompatibility returns a table with outlook and gmail registered
func NewCompatibility() *Compatibility {
	c := &Compatibility{clients: map[string]map[string]ClientSupport{}}
	c.RegisterClient(ClientOutlook, outlookSupport)
	c.RegisterClient(ClientGmail, map[string]ClientSupport{})
	return c
}

// RegisterClient sets the capability matrix of a client. Properties missing
// from the matrix are considered supported.
func (c *Compatibility) RegisterClient(id string, matrix map[string]ClientSupport) {
	copied := make(map[string]ClientSupport, len(matrix))
	for k, v := range matrix {
		copied[k] = v
	}
	c.mu.Lock()
	c.clients[id] = copied
	c.mu.Unlock()
}

// HasClient reports whether id is registered
func (c *Compatibility) HasClient(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.clients[id]
	return ok
}

// Support returns the capability of client for property
func (c *Compatibility) Support(client, property string) ClientSupport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	matrix, ok := c.clients[client]
	if !ok {
		return ClientSupport{Supported: true}
	}
	support, ok := matrix[property]
	if !ok {
		return ClientSupport{Supported: true}
	}
	return support
}

// Apply returns styles with fallbacks for the target clients. A declaration
// unsupported by any target is kept and followed by an !important fallback
// per registered fallback value. Declarations without fallback pass through.
func (c *Compatibility) Apply(styles Styles, clients []string) Styles {
	if len(clients) == 0 {
		return styles
	}

	out := make(Styles, 0, len(styles))
	for _, decl := range styles {
		out = append(out, decl)

		seen := map[string]bool{}
		for _, client := range clients {
			support, ok := decl.EmailClients[client]
			if !ok {
				support = c.Support(client, decl.Property)
			}
			if support.Supported || support.Fallback == "" || seen[support.Fallback] {
				continue
			}
			seen[support.Fallback] = true
			out = append(out, StyleConfig{
				Property:  decl.Property,
				Value:     support.Fallback,
				Important: true,
			})
		}
	}
	return out
}
