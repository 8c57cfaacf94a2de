package parser

import (
	"context"
	"testing"
)

func TestParseKubernetesYAML_MultiDocument(t *testing.T) {
	doc := Document{
		Name: "manifests.yaml",
		Content: []byte(`
apiVersion: v1
kind: Pod
metadata:
  name: web
spec:
  containers:
    - name: app
      securityContext:
        privileged: true
---
apiVersion: v1
kind: Service
metadata:
  name: web-svc
spec:
  type: ClusterIP
`),
	}

	resources, err := Parse(context.Background(), doc, DialectKubernetesYAML, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(resources) != 2 {
		t.Fatalf("Expected 2 resources, got %d", len(resources))
	}

	pod := resources[0]
	if pod.Kind != "Pod" || pod.Name != "web" {
		t.Errorf("Expected Pod/web, got %s/%s", pod.Kind, pod.Name)
	}
	if priv, ok := pod.Lookup("spec.containers.0.securityContext.privileged"); !ok || priv != true {
		t.Errorf("Expected privileged=true, got %v (present=%v)", priv, ok)
	}

	svc := resources[1]
	if svc.Kind != "Service" || svc.Name != "web-svc" {
		t.Errorf("Expected Service/web-svc, got %s/%s", svc.Kind, svc.Name)
	}
}

func TestParseKubernetesYAML_SkipsBlankDocuments(t *testing.T) {
	doc := Document{
		Name: "sparse.yaml",
		Content: []byte(`---
---
kind: Namespace
metadata:
  name: staging
---
`),
	}

	resources, err := Parse(context.Background(), doc, DialectKubernetesYAML, Options{})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(resources) != 1 {
		t.Fatalf("Expected 1 resource, got %d", len(resources))
	}
	if resources[0].Kind != "Namespace" {
		t.Errorf("Expected Namespace, got %s", resources[0].Kind)
	}
}

func TestParseKubernetesYAML_MissingKind(t *testing.T) {
	doc := Document{
		Name:    "anon.yaml",
		Content: []byte("metadata:\n  name: unnamed\n"),
	}

	if _, err := Parse(context.Background(), doc, DialectKubernetesYAML, Options{}); !IsSyntaxError(err) {
		t.Fatalf("Expected SyntaxError for document without kind, got %v", err)
	}
}

func TestParseKubernetesYAML_Malformed(t *testing.T) {
	doc := Document{
		Name:    "broken.yaml",
		Content: []byte("kind: Pod\nmetadata: [unclosed\n"),
	}

	if _, err := Parse(context.Background(), doc, DialectKubernetesYAML, Options{}); !IsSyntaxError(err) {
		t.Fatalf("Expected SyntaxError, got %v", err)
	}
}
