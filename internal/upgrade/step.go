package upgrade

// Step names one operation of a node upgrade.
type Step string

const (
	StepDrain               Step = "drain"
	StepUnhold              Step = "unhold-packages"
	StepRefreshIndex        Step = "refresh-index"
	StepInstallTool         Step = "install-upgrade-tool"
	StepUpgradeApply        Step = "kubeadm-upgrade-apply"
	StepUpgradeNode         Step = "kubeadm-upgrade-node"
	StepInstallNodePackages Step = "install-node-packages"
	StepDaemonReload        Step = "daemon-reload"
	StepRestartKubelet      Step = "restart-kubelet"
	StepRestartRuntime      Step = "restart-runtime"
	StepHold                Step = "hold-packages"
	StepUncordon            Step = "uncordon"
	StepWaitReady           Step = "wait-ready"
)

// StepResult is the outcome of a best-effort step.
type StepResult string

const (
	StepOK             StepResult = "ok"
	StepIgnoredFailure StepResult = "ignored-failure"
)
