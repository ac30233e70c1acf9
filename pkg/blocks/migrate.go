package blocks

// legacySocialFields are the per platform keys older social blocks carried
// instead of the networks list, in the order they are migrated.
var legacySocialFields = []string{
	"facebook",
	"twitter",
	"x",
	"instagram",
	"linkedin",
	"youtube",
	"tiktok",
	"pinterest",
	"github",
}

// MigrateBlocks returns a copy of blocks rewritten to the current prop
// schema. The input is never modified and migrating twice equals migrating once.
func MigrateBlocks(blocks []Block) []Block {
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = MigrateBlock(b)
	}
	return out
}

// MigrateBlock rewrites one block, recursing into group members
func MigrateBlock(b Block) Block {
	b = b.Clone()
	if b.Props == nil {
		return b
	}

	switch b.Type {
	case TypeText:
		migrateTextContent(b.Props)
	case TypeSocial:
		migrateSocialNetworks(b.Props)
	case TypeList:
		if items, ok := b.Props["items"].(string); ok {
			b.Props["items"] = TransformListItems(items)
		}
	case TypeGroup:
		if b.Props.Has("blocks") {
			b.Props["blocks"] = MigrateBlocks(b.Children())
		}
	}
	return b
}

func migrateTextContent(props Props) {
	content, hasContent := props["content"]
	if !hasContent || props.Has("text") {
		return
	}
	props["text"] = content
	delete(props, "content")
}

func migrateSocialNetworks(props Props) {
	if props.Has("networks") {
		return
	}

	networks := []interface{}{}
	found := false
	for _, platform := range legacySocialFields {
		raw, ok := props[platform]
		if !ok {
			continue
		}
		found = true
		delete(props, platform)
		if u, isString := raw.(string); isString && u != "" {
			networks = append(networks, map[string]interface{}{"platform": platform, "url": u})
		}
	}
	if found {
		props["networks"] = networks
	}
}
