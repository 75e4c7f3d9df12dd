package tenant

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	rustfsv1alpha1 "github.com/rustfs/rustfs-operator/api/v1alpha1"
	"github.com/rustfs/rustfs-operator/pkg/consts"
)

// Each scenario runs in its own namespace: a namespace hosts at most one
// Tenant because the IO service name is fixed.
func ensureNamespace(ctx context.Context, name string) {
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name}}
	if err := k8sClient.Create(ctx, ns); err != nil && !apierrors.IsAlreadyExists(err) {
		Expect(err).NotTo(HaveOccurred())
	}
}

func newTenant(name, namespace string) *rustfsv1alpha1.Tenant {
	return &rustfsv1alpha1.Tenant{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Spec: rustfsv1alpha1.TenantSpec{
			Pools: []rustfsv1alpha1.Pool{
				{
					Name:    "p0",
					Servers: 1,
					Persistence: rustfsv1alpha1.PersistenceConfig{
						VolumesPerServer:    4,
						VolumeClaimTemplate: testClaim(),
					},
				},
			},
		},
	}
}

func testClaim() *corev1.PersistentVolumeClaimSpec {
	return &corev1.PersistentVolumeClaimSpec{
		AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
		Resources: corev1.ResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceStorage: resource.MustParse("1Gi"),
			},
		},
	}
}

func getEnv(env []corev1.EnvVar, name string) *corev1.EnvVar {
	for i := range env {
		if env[i].Name == name {
			return &env[i]
		}
	}
	return nil
}

var _ = Describe("Tenant controller", func() {
	ctx := context.Background()

	Context("when creating a minimal Tenant", func() {
		const tenantName = "dev"

		It("materialises RBAC, services and the pool workload", func() {
			ensureNamespace(ctx, "default")
			tenant := newTenant(tenantName, "default")
			Expect(k8sClient.Create(ctx, tenant)).To(Succeed())

			Eventually(func(g Gomega) {
				role := &rbacv1.Role{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: "default", Name: tenantName}, role)).To(Succeed())
				g.Expect(role.Rules).To(HaveLen(1))
				g.Expect(role.Rules[0].Resources).To(ConsistOf("pods", "endpoints", "services"))

				sa := &corev1.ServiceAccount{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: "default", Name: tenantName}, sa)).To(Succeed())

				binding := &rbacv1.RoleBinding{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: "default", Name: tenantName}, binding)).To(Succeed())
				g.Expect(binding.Subjects[0].Name).To(Equal(tenantName))
			}).Should(Succeed())

			Eventually(func(g Gomega) {
				for _, name := range []string{"rustfs", "dev-console", "dev-hl"} {
					svc := &corev1.Service{}
					g.Expect(k8sClient.Get(ctx,
						types.NamespacedName{Namespace: "default", Name: name}, svc)).To(Succeed())
				}

				hl := &corev1.Service{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: "default", Name: "dev-hl"}, hl)).To(Succeed())
				g.Expect(hl.Spec.ClusterIP).To(Equal(corev1.ClusterIPNone))
				g.Expect(hl.Spec.PublishNotReadyAddresses).To(BeTrue())
			}).Should(Succeed())

			Eventually(func(g Gomega) {
				ss := &appsv1.StatefulSet{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: "default", Name: "dev-p0"}, ss)).To(Succeed())
				g.Expect(*ss.Spec.Replicas).To(Equal(int32(1)))
				g.Expect(ss.Spec.ServiceName).To(Equal("dev-hl"))

				container := ss.Spec.Template.Spec.Containers[0]
				g.Expect(container.Image).To(Equal("rustfs/rustfs:test-default"))

				volumes := getEnv(container.Env, consts.EnvVolumes)
				g.Expect(volumes).NotTo(BeNil())
				g.Expect(volumes.Value).To(Equal(
					"http://dev-p0-{0...0}.dev-hl.default.svc.cluster.local:9000/data/rustfs{0...3}"))
				g.Expect(getEnv(container.Env, consts.EnvAddress).Value).To(Equal("0.0.0.0:9000"))
				g.Expect(getEnv(container.Env, consts.EnvConsoleAddress).Value).To(Equal("0.0.0.0:9001"))
				g.Expect(getEnv(container.Env, consts.EnvConsoleEnable).Value).To(Equal("true"))
			}).Should(Succeed())
		})

		It("stamps the controller owner reference on every owned resource", func() {
			tenant := &rustfsv1alpha1.Tenant{}
			Expect(k8sClient.Get(ctx,
				types.NamespacedName{Namespace: "default", Name: tenantName}, tenant)).To(Succeed())

			Eventually(func(g Gomega) {
				ss := &appsv1.StatefulSet{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: "default", Name: "dev-p0"}, ss)).To(Succeed())
				g.Expect(ss.OwnerReferences).To(HaveLen(1))
				g.Expect(ss.OwnerReferences[0].UID).To(Equal(tenant.UID))
				g.Expect(*ss.OwnerReferences[0].Controller).To(BeTrue())
				g.Expect(*ss.OwnerReferences[0].BlockOwnerDeletion).To(BeTrue())

				svc := &corev1.Service{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: "default", Name: "dev-hl"}, svc)).To(Succeed())
				g.Expect(svc.OwnerReferences[0].UID).To(Equal(tenant.UID))
			}).Should(Succeed())
		})

		It("reaches Ready once the workload rollout converges", func() {
			ss := &appsv1.StatefulSet{}
			Eventually(func(g Gomega) {
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: "default", Name: "dev-p0"}, ss)).To(Succeed())
			}).Should(Succeed())

			ss.Status.Replicas = 1
			ss.Status.ReadyReplicas = 1
			ss.Status.CurrentReplicas = 1
			ss.Status.UpdatedReplicas = 1
			ss.Status.CurrentRevision = "rev-1"
			ss.Status.UpdateRevision = "rev-1"
			Expect(k8sClient.Status().Update(ctx, ss)).To(Succeed())

			Eventually(func(g Gomega) {
				tenant := &rustfsv1alpha1.Tenant{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: "default", Name: tenantName}, tenant)).To(Succeed())
				g.Expect(tenant.Status.CurrentState).To(Equal(rustfsv1alpha1.TenantStateReady))
				g.Expect(tenant.Status.AvailableReplicas).To(Equal(int32(1)))
				g.Expect(tenant.Status.Pools).To(HaveLen(1))
				g.Expect(tenant.Status.Pools[0].State).To(Equal(rustfsv1alpha1.PoolStateRolloutComplete))

				ready := meta.FindStatusCondition(tenant.Status.Conditions, rustfsv1alpha1.ConditionReady)
				g.Expect(ready).NotTo(BeNil())
				g.Expect(ready.Status).To(Equal(metav1.ConditionTrue))
			}).Should(Succeed())
		})

		It("performs no writes at steady state", func() {
			ss := &appsv1.StatefulSet{}
			Expect(k8sClient.Get(ctx,
				types.NamespacedName{Namespace: "default", Name: "dev-p0"}, ss)).To(Succeed())
			observedVersion := ss.ResourceVersion

			// Nudge the tenant so another pass runs against unchanged state.
			tenant := &rustfsv1alpha1.Tenant{}
			Expect(k8sClient.Get(ctx,
				types.NamespacedName{Namespace: "default", Name: tenantName}, tenant)).To(Succeed())
			if tenant.Annotations == nil {
				tenant.Annotations = map[string]string{}
			}
			tenant.Annotations["rustfs.com/nudge"] = "steady-state"
			Expect(k8sClient.Update(ctx, tenant)).To(Succeed())

			Consistently(func(g Gomega) {
				current := &appsv1.StatefulSet{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: "default", Name: "dev-p0"}, current)).To(Succeed())
				g.Expect(current.ResourceVersion).To(Equal(observedVersion))
			}, "2s", "200ms").Should(Succeed())
		})
	})

	Context("when the Tenant brings an external service account", func() {
		const namespace = "ext-ns"

		It("skips Role, ServiceAccount and RoleBinding entirely", func() {
			ensureNamespace(ctx, namespace)
			tenant := newTenant("ext", namespace)
			tenant.Spec.ServiceAccountName = "external-sa"
			Expect(k8sClient.Create(ctx, tenant)).To(Succeed())

			Eventually(func(g Gomega) {
				ss := &appsv1.StatefulSet{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: namespace, Name: "ext-p0"}, ss)).To(Succeed())
				g.Expect(ss.Spec.Template.Spec.ServiceAccountName).To(Equal("external-sa"))
			}).Should(Succeed())

			role := &rbacv1.Role{}
			Expect(k8sClient.Get(ctx,
				types.NamespacedName{Namespace: namespace, Name: "ext"}, role)).NotTo(Succeed())
			sa := &corev1.ServiceAccount{}
			Expect(k8sClient.Get(ctx,
				types.NamespacedName{Namespace: namespace, Name: "ext"}, sa)).NotTo(Succeed())
			binding := &rbacv1.RoleBinding{}
			Expect(k8sClient.Get(ctx,
				types.NamespacedName{Namespace: namespace, Name: "ext"}, binding)).NotTo(Succeed())
		})
	})

	Context("when an external service account still wants RBAC", func() {
		const namespace = "ext-rbac-ns"

		It("creates Role and RoleBinding but no ServiceAccount", func() {
			ensureNamespace(ctx, namespace)
			tenant := newTenant("extr", namespace)
			tenant.Spec.ServiceAccountName = "external-sa"
			tenant.Spec.CreateServiceAccountRBAC = true
			Expect(k8sClient.Create(ctx, tenant)).To(Succeed())

			Eventually(func(g Gomega) {
				binding := &rbacv1.RoleBinding{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: namespace, Name: "extr"}, binding)).To(Succeed())
				g.Expect(binding.Subjects[0].Name).To(Equal("external-sa"))
			}).Should(Succeed())

			sa := &corev1.ServiceAccount{}
			Expect(k8sClient.Get(ctx,
				types.NamespacedName{Namespace: namespace, Name: "extr"}, sa)).NotTo(Succeed())
		})
	})

	Context("when the credential secret is missing", func() {
		const (
			tenantName = "creds"
			namespace  = "creds-ns"
		)

		It("reports CredentialSecretNotFound and writes no workload", func() {
			ensureNamespace(ctx, namespace)
			tenant := newTenant(tenantName, namespace)
			tenant.Spec.CredsSecret = &corev1.LocalObjectReference{Name: "creds"}
			Expect(k8sClient.Create(ctx, tenant)).To(Succeed())

			Eventually(func(g Gomega) {
				current := &rustfsv1alpha1.Tenant{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: namespace, Name: tenantName}, current)).To(Succeed())
				ready := meta.FindStatusCondition(current.Status.Conditions, rustfsv1alpha1.ConditionReady)
				g.Expect(ready).NotTo(BeNil())
				g.Expect(ready.Status).To(Equal(metav1.ConditionFalse))
				g.Expect(ready.Reason).To(Equal(rustfsv1alpha1.ReasonCredentialSecretNotFound))
			}).Should(Succeed())

			ss := &appsv1.StatefulSet{}
			Expect(k8sClient.Get(ctx,
				types.NamespacedName{Namespace: namespace, Name: tenantName + "-p0"}, ss)).NotTo(Succeed())
		})

		It("applies the workload with secret references once the secret appears", func() {
			secret := &corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "creds", Namespace: namespace},
				Data: map[string][]byte{
					consts.DataKeyAccessKey: []byte("accesskey-value"),
					consts.DataKeySecretKey: []byte("secretkey-value"),
				},
			}
			Expect(k8sClient.Create(ctx, secret)).To(Succeed())

			Eventually(func(g Gomega) {
				ss := &appsv1.StatefulSet{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: namespace, Name: tenantName + "-p0"}, ss)).To(Succeed())

				container := ss.Spec.Template.Spec.Containers[0]
				access := getEnv(container.Env, consts.EnvAccessKey)
				g.Expect(access).NotTo(BeNil())
				g.Expect(access.ValueFrom.SecretKeyRef.Name).To(Equal("creds"))
				g.Expect(access.ValueFrom.SecretKeyRef.Key).To(Equal(consts.DataKeyAccessKey))

				secretEnv := getEnv(container.Env, consts.EnvSecretKey)
				g.Expect(secretEnv).NotTo(BeNil())
				g.Expect(secretEnv.ValueFrom.SecretKeyRef.Key).To(Equal(consts.DataKeySecretKey))
			}).Should(Succeed())
		})
	})

	Context("when the credential secret is malformed", func() {
		It("reports CredentialSecretTooShort for short values", func() {
			const namespace = "creds-short-ns"
			ensureNamespace(ctx, namespace)

			secret := &corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "short-creds", Namespace: namespace},
				Data: map[string][]byte{
					consts.DataKeyAccessKey: []byte("short"),
					consts.DataKeySecretKey: []byte("secretkey-value"),
				},
			}
			Expect(k8sClient.Create(ctx, secret)).To(Succeed())

			tenant := newTenant("creds-short", namespace)
			tenant.Spec.CredsSecret = &corev1.LocalObjectReference{Name: "short-creds"}
			Expect(k8sClient.Create(ctx, tenant)).To(Succeed())

			Eventually(func(g Gomega) {
				current := &rustfsv1alpha1.Tenant{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: namespace, Name: "creds-short"}, current)).To(Succeed())
				ready := meta.FindStatusCondition(current.Status.Conditions, rustfsv1alpha1.ConditionReady)
				g.Expect(ready).NotTo(BeNil())
				g.Expect(ready.Reason).To(Equal(rustfsv1alpha1.ReasonCredentialSecretTooShort))
			}).Should(Succeed())
		})

		It("reports CredentialSecretMissingKey when a key is absent", func() {
			const namespace = "creds-half-ns"
			ensureNamespace(ctx, namespace)

			secret := &corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: "half-creds", Namespace: namespace},
				Data: map[string][]byte{
					consts.DataKeyAccessKey: []byte("accesskey-value"),
				},
			}
			Expect(k8sClient.Create(ctx, secret)).To(Succeed())

			tenant := newTenant("creds-half", namespace)
			tenant.Spec.CredsSecret = &corev1.LocalObjectReference{Name: "half-creds"}
			Expect(k8sClient.Create(ctx, tenant)).To(Succeed())

			Eventually(func(g Gomega) {
				current := &rustfsv1alpha1.Tenant{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: namespace, Name: "creds-half"}, current)).To(Succeed())
				ready := meta.FindStatusCondition(current.Status.Conditions, rustfsv1alpha1.ConditionReady)
				g.Expect(ready).NotTo(BeNil())
				g.Expect(ready.Reason).To(Equal(rustfsv1alpha1.ReasonCredentialSecretMissingKey))
			}).Should(Succeed())
		})
	})

	Context("when the spec violates an invariant", func() {
		const namespace = "validation-ns"

		It("rejects a pool below the minimum erasure set", func() {
			ensureNamespace(ctx, namespace)
			tenant := newTenant("too-small", namespace)
			tenant.Spec.Pools[0].Persistence.VolumesPerServer = 3
			Expect(k8sClient.Create(ctx, tenant)).To(Succeed())

			Eventually(func(g Gomega) {
				current := &rustfsv1alpha1.Tenant{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: namespace, Name: "too-small"}, current)).To(Succeed())
				g.Expect(current.Status.CurrentState).To(Equal(rustfsv1alpha1.TenantStateFailed))
				ready := meta.FindStatusCondition(current.Status.Conditions, rustfsv1alpha1.ConditionReady)
				g.Expect(ready).NotTo(BeNil())
				g.Expect(ready.Reason).To(Equal(rustfsv1alpha1.ReasonValidationFailed))
			}).Should(Succeed())

			ss := &appsv1.StatefulSet{}
			Expect(k8sClient.Get(ctx,
				types.NamespacedName{Namespace: namespace, Name: "too-small-p0"}, ss)).NotTo(Succeed())
		})
	})

	Context("when an immutable field is edited", func() {
		const (
			tenantName = "imm"
			namespace  = "imm-ns"
		)

		It("rejects the update and leaves the workload untouched", func() {
			ensureNamespace(ctx, namespace)
			tenant := newTenant(tenantName, namespace)
			Expect(k8sClient.Create(ctx, tenant)).To(Succeed())

			ss := &appsv1.StatefulSet{}
			Eventually(func(g Gomega) {
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: namespace, Name: tenantName + "-p0"}, ss)).To(Succeed())
			}).Should(Succeed())
			Expect(ss.Spec.VolumeClaimTemplates).To(HaveLen(4))

			Eventually(func(g Gomega) {
				current := &rustfsv1alpha1.Tenant{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: namespace, Name: tenantName}, current)).To(Succeed())
				current.Spec.Pools[0].Persistence.VolumesPerServer = 5
				g.Expect(k8sClient.Update(ctx, current)).To(Succeed())
			}).Should(Succeed())

			Eventually(func(g Gomega) {
				current := &rustfsv1alpha1.Tenant{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: namespace, Name: tenantName}, current)).To(Succeed())
				degraded := meta.FindStatusCondition(current.Status.Conditions, rustfsv1alpha1.ConditionDegraded)
				g.Expect(degraded).NotTo(BeNil())
				g.Expect(degraded.Status).To(Equal(metav1.ConditionTrue))
				g.Expect(degraded.Reason).To(Equal(rustfsv1alpha1.ReasonImmutableFieldModified))
			}).Should(Succeed())

			current := &appsv1.StatefulSet{}
			Expect(k8sClient.Get(ctx,
				types.NamespacedName{Namespace: namespace, Name: tenantName + "-p0"}, current)).To(Succeed())
			Expect(current.Spec.VolumeClaimTemplates).To(HaveLen(4))
		})

		It("recovers once the edit is reverted", func() {
			Eventually(func(g Gomega) {
				current := &rustfsv1alpha1.Tenant{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: namespace, Name: tenantName}, current)).To(Succeed())
				current.Spec.Pools[0].Persistence.VolumesPerServer = 4
				g.Expect(k8sClient.Update(ctx, current)).To(Succeed())
			}).Should(Succeed())

			Eventually(func(g Gomega) {
				current := &rustfsv1alpha1.Tenant{}
				g.Expect(k8sClient.Get(ctx,
					types.NamespacedName{Namespace: namespace, Name: tenantName}, current)).To(Succeed())
				degraded := meta.FindStatusCondition(current.Status.Conditions, rustfsv1alpha1.ConditionDegraded)
				g.Expect(degraded).NotTo(BeNil())
				g.Expect(degraded.Status).To(Equal(metav1.ConditionFalse))
			}).Should(Succeed())
		})
	})

	Context("with multiple pools", func() {
		const namespace = "multi-ns"

		It("derives one unified volumes value shared by every workload", func() {
			ensureNamespace(ctx, namespace)
			tenant := newTenant("multi", namespace)
			tenant.Spec.Pools = []rustfsv1alpha1.Pool{
				{
					Name:    "a",
					Servers: 4,
					Persistence: rustfsv1alpha1.PersistenceConfig{
						VolumesPerServer:    2,
						VolumeClaimTemplate: testClaim(),
					},
				},
				{
					Name:    "b",
					Servers: 2,
					Persistence: rustfsv1alpha1.PersistenceConfig{
						VolumesPerServer:    4,
						VolumeClaimTemplate: testClaim(),
					},
				},
			}
			Expect(k8sClient.Create(ctx, tenant)).To(Succeed())

			expected := "http://multi-a-{0...3}.multi-hl.multi-ns.svc.cluster.local:9000/data/rustfs{0...1} " +
				"http://multi-b-{0...1}.multi-hl.multi-ns.svc.cluster.local:9000/data/rustfs{0...3}"

			Eventually(func(g Gomega) {
				for _, pool := range []string{"a", "b"} {
					ss := &appsv1.StatefulSet{}
					g.Expect(k8sClient.Get(ctx,
						types.NamespacedName{Namespace: namespace, Name: fmt.Sprintf("multi-%s", pool)}, ss)).To(Succeed())
					volumes := getEnv(ss.Spec.Template.Spec.Containers[0].Env, consts.EnvVolumes)
					g.Expect(volumes).NotTo(BeNil())
					g.Expect(volumes.Value).To(Equal(expected))
				}
			}).Should(Succeed())
		})

		It("creates a disruption budget for multi-server pools only", func() {
			Eventually(func(g Gomega) {
				for _, name := range []string{"multi-a", "multi-b"} {
					pdb := &policyv1.PodDisruptionBudget{}
					g.Expect(k8sClient.Get(ctx,
						types.NamespacedName{Namespace: namespace, Name: name}, pdb)).To(Succeed())
					g.Expect(pdb.Spec.MaxUnavailable.IntValue()).To(Equal(1))
				}
			}).Should(Succeed())

			pdb := &policyv1.PodDisruptionBudget{}
			Expect(k8sClient.Get(ctx,
				types.NamespacedName{Namespace: "default", Name: "dev-p0"}, pdb)).NotTo(Succeed())
		})
	})
})
