package mounts

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/devplug/pkg/errors"
	"github.com/arthur-debert/devplug/pkg/filesystem"
	"github.com/arthur-debert/devplug/pkg/types"
)

const overrideHeader = "Generated by devplug on every invocation. Do not edit."

// DefaultTemplate is used when no enabled plugin ships an override template.
func DefaultTemplate(service string) []byte {
	return []byte(fmt.Sprintf("services:\n  %s:\n    volumes: []\n", service))
}

// RenderOverride appends mounts to services.<service>.volumes of the compose
// template. Volumes already listed in the template are kept and not
// repeated. An empty template starts from an empty document.
func RenderOverride(template []byte, service string, mounts []types.MountEntry) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(template, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "cannot parse override template")
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode}
	}
	if len(doc.Content) == 0 {
		doc.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New(errors.ErrConfigValid, "override template must be a mapping")
	}
	if root.HeadComment == "" {
		root.HeadComment = overrideHeader
	}

	services, err := mappingValue(root, "services")
	if err != nil {
		return nil, err
	}
	svc, err := mappingValue(services, service)
	if err != nil {
		return nil, err
	}
	volumes := childNode(svc, "volumes")
	switch {
	case volumes == nil:
		volumes = &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		svc.Content = append(svc.Content, scalar("volumes"), volumes)
	case volumes.Kind == yaml.ScalarNode && volumes.ShortTag() == "!!null":
		*volumes = yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	case volumes.Kind != yaml.SequenceNode:
		return nil, errors.Newf(errors.ErrConfigValid, "services.%s.volumes must be a list", service)
	}
	// An empty flow sequence ("[]") would stay inline.
	volumes.Style = 0

	existing := make(map[string]bool, len(volumes.Content))
	for _, v := range volumes.Content {
		existing[v.Value] = true
	}
	for _, m := range mounts {
		entry := m.String()
		if existing[entry] {
			continue
		}
		existing[entry] = true
		volumes.Content = append(volumes.Content, scalar(entry))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot encode override file")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "cannot encode override file")
	}
	return buf.Bytes(), nil
}

// WriteOverride renders the override and writes it to dest.
func WriteOverride(dest string, template []byte, service string, mounts []types.MountEntry) error {
	data, err := RenderOverride(template, service, mounts)
	if err != nil {
		return err
	}
	// compose may be reading the previous file while a watch regenerates it
	return filesystem.WriteFileAtomic(dest, data, 0o644)
}

// LoadTemplate returns the first existing template among candidates, or the
// default template for service.
func LoadTemplate(candidates []string, service string) ([]byte, string, error) {
	for _, c := range candidates {
		data, err := os.ReadFile(c)
		if err == nil {
			return data, c, nil
		}
		if !os.IsNotExist(err) {
			return nil, "", errors.Wrapf(err, errors.ErrFileAccess, "cannot read template %s", c)
		}
	}
	return DefaultTemplate(service), "", nil
}

func childNode(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// mappingValue returns the mapping stored under key, creating it when the
// key is absent or null.
func mappingValue(m *yaml.Node, key string) (*yaml.Node, error) {
	child := childNode(m, key)
	switch {
	case child == nil:
		child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		m.Content = append(m.Content, scalar(key), child)
	case child.Kind == yaml.ScalarNode && child.ShortTag() == "!!null":
		*child = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	case child.Kind != yaml.MappingNode:
		return nil, errors.Newf(errors.ErrConfigValid, "%s must be a mapping in the override template", key)
	}
	return child, nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
