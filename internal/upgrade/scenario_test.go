package upgrade

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/imamik/kuberoll/internal/topology"
)

// softwareCalls is the expected host call sequence of a software upgrade.
func softwareCalls(host string, leader bool) []string {
	kubeadm := fmt.Sprintf("UpgradeNode(%s)", host)
	if leader {
		kubeadm = fmt.Sprintf("UpgradeApply(%s,v1.29.3,true)", host)
	}
	return []string{
		fmt.Sprintf("Unhold(%s,kubeadm kubelet kubectl)", host),
		fmt.Sprintf("RefreshIndex(%s)", host),
		fmt.Sprintf("Install(%s,kubeadm=1.29.3-00)", host),
		kubeadm,
		fmt.Sprintf("Install(%s,kubelet=1.29.3-00 kubectl=1.29.3-00)", host),
		fmt.Sprintf("DaemonReload(%s)", host),
		fmt.Sprintf("RestartService(%s,kubelet)", host),
		fmt.Sprintf("Hold(%s,kubeadm kubelet kubectl)", host),
	}
}

func nodeCalls(node topology.Node, rewrite bool) []string {
	var calls []string
	if rewrite {
		calls = append(calls, fmt.Sprintf("RewriteRepository(%s,v1.29)", node.Host))
	}
	calls = append(calls, fmt.Sprintf("Drain(%s)", node.Name))
	calls = append(calls, softwareCalls(node.Host, node.IsLeader())...)
	return append(calls,
		fmt.Sprintf("Uncordon(%s)", node.Name),
		fmt.Sprintf("NodeReady(%s)", node.Name),
	)
}

var _ = Describe("Sequencer", func() {
	var (
		rec  *recorder
		topo *topology.Topology
		ctx  context.Context
	)

	BeforeEach(func() {
		rec = newRecorder()
		rec.serverVersion = "v1.28.4"
		rec.versions = []string{"1.29.1-00", "1.29.3-00", "1.29.2-00"}
		topo = threeNodes()
		ctx = context.Background()
	})

	Context("upgrading leader h1/n1, follower h2/n2 and worker h3/n3 from 1.28.4", func() {
		It("issues the exact call sequence", func() {
			seq := newTestSequencer(testConfig(), rec, nil)
			Expect(seq.RunUpgrade(ctx, topo)).To(Succeed())

			expected := []string{
				"ServerVersion()",
				"RewriteRepository(h1,v1.29)",
				"RefreshIndex(h1)",
				"ListAvailableVersions(h1,kubeadm)",
			}
			expected = append(expected, nodeCalls(topo.Leader, false)...)
			expected = append(expected, nodeCalls(topo.Followers[0], true)...)
			expected = append(expected, nodeCalls(topo.Workers[0], true)...)

			Expect(rec.Calls()).To(Equal(expected))
		})

		It("resolves the plan once and reuses it", func() {
			seq := newTestSequencer(testConfig(), rec, nil)
			Expect(seq.RunUpgrade(ctx, topo)).To(Succeed())

			Expect(rec.CallsOf("ServerVersion", "ListAvailableVersions")).To(HaveLen(2))
			Expect(seq.Plan().TargetFullVersion).To(Equal("1.29.3-00"))
			Expect(seq.Plan().TargetShortVersion).To(Equal("v1.29.3"))
			Expect(rec.CallsOf("Install")).To(HaveEach(ContainSubstring("=1.29.3-00")))
		})

		It("never uncordons before the software upgrade nor waits before uncordon", func() {
			Expect(newTestSequencer(testConfig(), rec, nil).RunUpgrade(ctx, topo)).To(Succeed())

			calls := rec.Calls()
			for _, n := range topo.Ordered() {
				hold := indexOf(calls, fmt.Sprintf("Hold(%s,kubeadm kubelet kubectl)", n.Host))
				uncordon := indexOf(calls, fmt.Sprintf("Uncordon(%s)", n.Name))
				ready := indexOf(calls, fmt.Sprintf("NodeReady(%s)", n.Name))
				Expect(hold).To(BeNumerically(">=", 0))
				Expect(uncordon).To(BeNumerically(">", hold), n.Name)
				Expect(ready).To(BeNumerically(">", uncordon), n.Name)
			}
		})
	})

	DescribeTable("aborts before the next node is drained",
		func(failing string, wantDrains []string) {
			rec.failures[failing] = errors.New("injected")
			seq := newTestSequencer(testConfig(), rec, nil)

			Expect(seq.RunUpgrade(ctx, topo)).NotTo(Succeed())
			Expect(rec.CallsOf("Drain")).To(Equal(wantDrains))
			Expect(seq.State().Phase).To(Equal(PhaseAborted))
		},
		Entry("leader drain", "Drain(n1)", []string{"Drain(n1)"}),
		Entry("leader upgrade apply", "UpgradeApply", []string{"Drain(n1)"}),
		Entry("leader uncordon", "Uncordon(n1)", []string{"Drain(n1)"}),
		Entry("follower repository", "RewriteRepository(h2,v1.29)", []string{"Drain(n1)"}),
		Entry("follower kubeadm", "UpgradeNode(h2)", []string{"Drain(n1)", "Drain(n2)"}),
		Entry("follower hold", "Hold(h2,kubeadm kubelet kubectl)", []string{"Drain(n1)", "Drain(n2)"}),
		Entry("worker daemon-reload", "DaemonReload(h3)", []string{"Drain(n1)", "Drain(n2)", "Drain(n3)"}),
	)

	It("aborts on a readiness timeout before the next node", func() {
		rec.readyAfter["n2"] = 1 << 30
		cfg := testConfig()
		cfg.Ready.Timeout = 20 * time.Millisecond

		err := newTestSequencer(cfg, rec, nil).RunUpgrade(ctx, topo)

		var waitErr *WaitReadyError
		Expect(errors.As(err, &waitErr)).To(BeTrue())
		Expect(waitErr.Node).To(Equal("n2"))
		Expect(rec.Calls()).NotTo(ContainElement("Drain(n3)"))
	})

	It("stops when the run is cancelled during a readiness wait", func() {
		rec.readyAfter["n1"] = 1 << 30
		cfg := testConfig()
		cfg.Ready.Timeout = -1
		cctx, cancel := context.WithCancel(ctx)

		seq := newTestSequencer(cfg, rec, nil)
		done := make(chan error, 1)
		go func() { done <- seq.RunUpgrade(cctx, topo) }()

		Eventually(func() int { return len(rec.CallsOf("NodeReady")) }).Should(BeNumerically(">", 2))
		cancel()

		var err error
		Eventually(done).Should(Receive(&err))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(rec.CallsOf("Drain")).To(Equal([]string{"Drain(n1)"}))
	})
})

func indexOf(calls []string, call string) int {
	for i, c := range calls {
		if c == call {
			return i
		}
	}
	return -1
}
