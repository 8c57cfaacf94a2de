package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	utilyaml "k8s.io/apimachinery/pkg/util/yaml"
)

// parseKubernetesYAML extracts resources from a (possibly multi-document)
// Kubernetes YAML manifest. Each non-empty document becomes one resource
// whose kind and name come from the object's kind and metadata.name.
func parseKubernetesYAML(doc Document) ([]Resource, error) {
	decoder := utilyaml.NewYAMLOrJSONDecoder(bytes.NewReader(doc.Content), 4096)

	var resources []Resource
	for index := 0; ; index++ {
		var obj map[string]interface{}
		err := decoder.Decode(&obj)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &SyntaxError{
				File:    doc.Name,
				Message: fmt.Sprintf("document %d: %v", index, err),
				Err:     err,
			}
		}
		if len(obj) == 0 {
			// Blank documents between separators are not resources.
			continue
		}

		u := &unstructured.Unstructured{Object: obj}
		kind := u.GetKind()
		if kind == "" {
			return nil, &SyntaxError{
				File:    doc.Name,
				Message: fmt.Sprintf("document %d has no kind", index),
			}
		}

		resources = append(resources, Resource{
			Kind:   kind,
			Name:   u.GetName(),
			Fields: obj,
			Source: Location{File: doc.Name},
		})
	}

	return resources, nil
}
