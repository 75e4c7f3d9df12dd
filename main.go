/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	// Import all Kubernetes client auth plugins (e.g. Azure, GCP, OIDC, etc.)
	// to ensure that exec-entrypoint and run can make use of them.
	_ "k8s.io/client-go/plugin/pkg/client/auth"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	sigsyaml "sigs.k8s.io/yaml"

	rustfsv1alpha1 "github.com/rustfs/rustfs-operator/api/v1alpha1"
	"github.com/rustfs/rustfs-operator/internal/config"
	"github.com/rustfs/rustfs-operator/internal/controllers/tenant"
	"github.com/rustfs/rustfs-operator/internal/crd"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(rustfsv1alpha1.AddToScheme(scheme))
}

func main() {
	root := &cobra.Command{
		Use:           "rustfs-operator",
		Short:         "RustFS Kubernetes operator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newCrdCommand(), newOperatorCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newCrdCommand prints the Tenant CRD so installation needs nothing but
// `rustfs-operator crd | kubectl apply -f -`.
func newCrdCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "crd",
		Short: "Print the Tenant CustomResourceDefinition as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := sigsyaml.Marshal(crd.Tenant())
			if err != nil {
				return err
			}
			if outputPath == "" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return os.WriteFile(outputPath, out, 0o644)
		},
	}
	cmd.Flags().StringVarP(&outputPath, "file", "f", "", "Write the CRD to this path instead of stdout.")
	return cmd
}

func newOperatorCommand() *cobra.Command {
	var (
		metricsAddr          string
		probeAddr            string
		enableLeaderElection bool
		configPath           string
	)

	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Run the reconciler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperator(metricsAddr, probeAddr, configPath, enableLeaderElection)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	cmd.Flags().StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	cmd.Flags().BoolVar(&enableLeaderElection, "leader-elect", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file.")

	zapOpts := zap.Options{Development: true}
	fs := flag.NewFlagSet("zap", flag.ContinueOnError)
	zapOpts.BindFlags(fs)
	cmd.Flags().AddGoFlagSet(fs)
	cmd.PreRun = func(*cobra.Command, []string) {
		ctrl.SetLogger(zap.New(zap.UseFlagOptions(&zapOpts)))
	}

	return cmd
}

func runOperator(metricsAddr, probeAddr, configPath string, enableLeaderElection bool) error {
	cfg, err := config.GetConfig(configPath)
	if err != nil {
		setupLog.Error(err, "failed to get config")
		return err
	}

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		MetricsBindAddress:     metricsAddr,
		HealthProbeBindAddress: probeAddr,
		LeaderElection:         enableLeaderElection,
		LeaderElectionID:       "operator.rustfs.com",
	})
	if err != nil {
		setupLog.Error(err, "unable to start manager")
		return err
	}

	tenantReconciler := tenant.NewReconciler(mgr, cfg)
	if err = tenantReconciler.SetupWithManager(mgr); err != nil {
		setupLog.Error(err, "unable to create controller", "controller", "Tenant")
		return err
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up health check")
		return err
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		setupLog.Error(err, "unable to set up ready check")
		return err
	}

	setupLog.Info("starting manager")
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		setupLog.Error(err, "problem running manager")
		return err
	}
	return nil
}
