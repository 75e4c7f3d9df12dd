// Package crd holds the programmatic definition of the Tenant custom
// resource. The same object serves the `crd` subcommand and the test
// environment, so there is no generated YAML to drift from the Go types.
package crd

import (
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/pointer"
)

func stringProp() apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{Type: "string"}
}

func boolProp() apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{Type: "boolean"}
}

func int32Prop(min int64) apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{Type: "integer", Format: "int32", Minimum: float64Ptr(min)}
}

func float64Ptr(v int64) *float64 {
	f := float64(v)
	return &f
}

// opaqueObject admits an embedded Kubernetes type without spelling out its
// whole schema; the apiserver validates it on use.
func opaqueObject() apiextensionsv1.JSONSchemaProps {
	preserve := true
	return apiextensionsv1.JSONSchemaProps{
		Type:                   "object",
		XPreserveUnknownFields: &preserve,
	}
}

func arrayOf(items apiextensionsv1.JSONSchemaProps) apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type:  "array",
		Items: &apiextensionsv1.JSONSchemaPropsOrArray{Schema: &items},
	}
}

func stringMap() apiextensionsv1.JSONSchemaProps {
	s := stringProp()
	return apiextensionsv1.JSONSchemaProps{
		Type:                 "object",
		AdditionalProperties: &apiextensionsv1.JSONSchemaPropsOrBool{Schema: &s},
	}
}

func enumString(values ...string) apiextensionsv1.JSONSchemaProps {
	p := stringProp()
	for _, v := range values {
		p.Enum = append(p.Enum, apiextensionsv1.JSON{Raw: []byte(`"` + v + `"`)})
	}
	return p
}

func localObjectRef() apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type: "object",
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"name": stringProp(),
		},
	}
}

func persistenceSchema() apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type:     "object",
		Required: []string{"volumesPerServer", "volumeClaimTemplate"},
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"volumesPerServer":    int32Prop(1),
			"volumeClaimTemplate": opaqueObject(),
			"path":                stringProp(),
			"labels":              stringMap(),
			"annotations":         stringMap(),
		},
	}
}

func poolSchema() apiextensionsv1.JSONSchemaProps {
	name := stringProp()
	name.MinLength = pointer.Int64(1)
	return apiextensionsv1.JSONSchemaProps{
		Type:     "object",
		Required: []string{"name", "servers", "persistence"},
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"name":                      name,
			"servers":                   int32Prop(1),
			"persistence":               persistenceSchema(),
			"nodeSelector":              stringMap(),
			"affinity":                  opaqueObject(),
			"tolerations":               arrayOf(opaqueObject()),
			"topologySpreadConstraints": arrayOf(opaqueObject()),
			"resources":                 opaqueObject(),
			"priorityClassName":         stringProp(),
		},
	}
}

func loggingSchema() apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type: "object",
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"mode":         enumString("stdout", "emptyDir", "persistent"),
			"storageSize":  stringProp(),
			"storageClass": stringProp(),
			"mountPath":    stringProp(),
		},
	}
}

func specSchema() apiextensionsv1.JSONSchemaProps {
	pools := arrayOf(poolSchema())
	pools.MinItems = pointer.Int64(1)

	return apiextensionsv1.JSONSchemaProps{
		Type:     "object",
		Required: []string{"pools"},
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"image":                    stringProp(),
			"imagePullPolicy":          enumString("Always", "IfNotPresent", "Never"),
			"imagePullSecret":          localObjectRef(),
			"pools":                    pools,
			"env":                      arrayOf(opaqueObject()),
			"scheduler":                stringProp(),
			"podManagementPolicy":      enumString("OrderedReady", "Parallel"),
			"credsSecret":              localObjectRef(),
			"serviceAccountName":       stringProp(),
			"createServiceAccountRbac": boolProp(),
			"priorityClassName":        stringProp(),
			"livenessProbe":            opaqueObject(),
			"readinessProbe":           opaqueObject(),
			"startupProbe":             opaqueObject(),
			"loggingConfig":            loggingSchema(),
		},
	}
}

func poolStatusSchema() apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type: "object",
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"ssName":          stringProp(),
			"state":           stringProp(),
			"replicas":        int32Prop(0),
			"readyReplicas":   int32Prop(0),
			"currentReplicas": int32Prop(0),
			"updatedReplicas": int32Prop(0),
			"currentRevision": stringProp(),
			"updateRevision":  stringProp(),
			"lastUpdateTime":  {Type: "string", Format: "date-time"},
		},
	}
}

func statusSchema() apiextensionsv1.JSONSchemaProps {
	return apiextensionsv1.JSONSchemaProps{
		Type: "object",
		Properties: map[string]apiextensionsv1.JSONSchemaProps{
			"currentState":       stringProp(),
			"availableReplicas":  int32Prop(0),
			"pools":              arrayOf(poolStatusSchema()),
			"observedGeneration": {Type: "integer", Format: "int64"},
			"conditions":         arrayOf(opaqueObject()),
		},
	}
}

// Tenant returns the full CustomResourceDefinition for rustfs.com/v1alpha1
// Tenant, status subresource enabled.
func Tenant() *apiextensionsv1.CustomResourceDefinition {
	return &apiextensionsv1.CustomResourceDefinition{
		TypeMeta: metav1.TypeMeta{
			APIVersion: apiextensionsv1.SchemeGroupVersion.String(),
			Kind:       "CustomResourceDefinition",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: "tenants.rustfs.com",
		},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: "rustfs.com",
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Kind:       "Tenant",
				ListKind:   "TenantList",
				Plural:     "tenants",
				Singular:   "tenant",
				ShortNames: []string{"tenant"},
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{
				{
					Name:    "v1alpha1",
					Served:  true,
					Storage: true,
					Subresources: &apiextensionsv1.CustomResourceSubresources{
						Status: &apiextensionsv1.CustomResourceSubresourceStatus{},
					},
					AdditionalPrinterColumns: []apiextensionsv1.CustomResourceColumnDefinition{
						{Name: "State", Type: "string", JSONPath: ".status.currentState"},
						{Name: "Age", Type: "date", JSONPath: ".metadata.creationTimestamp"},
					},
					Schema: &apiextensionsv1.CustomResourceValidation{
						OpenAPIV3Schema: &apiextensionsv1.JSONSchemaProps{
							Type: "object",
							Properties: map[string]apiextensionsv1.JSONSchemaProps{
								"apiVersion": stringProp(),
								"kind":       stringProp(),
								"metadata":   {Type: "object"},
								"spec":       specSchema(),
								"status":     statusSchema(),
							},
						},
					},
				},
			},
		},
	}
}
