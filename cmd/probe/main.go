package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	cli "github.com/jawher/mow.cli"

	"gesture-capture/pkg/camera"
	"gesture-capture/pkg/capture"
	"gesture-capture/pkg/config"
	"gesture-capture/pkg/loop"
)

// 反复执行 激活 -> 读取若干帧 -> 停用，用来验证某个驱动在
// settle/grace 延迟下能否稳定地重复打开设备。
func main() {
	app := cli.App("probe", "capture session hardware probe")

	configPath := app.String(cli.StringOpt{Name: "c config", Desc: "yaml config file", EnvVar: "GESTURE_CAPTURE_CONFIG"})
	driver := app.String(cli.StringOpt{Name: "driver", Desc: "camera driver", Value: ""})
	dev := app.String(cli.StringOpt{Name: "d dev", Desc: "视频设备路径", Value: ""})
	n := app.Int(cli.IntOpt{Name: "n", Desc: "每轮读取的帧数", Value: 10})
	cycles := app.Int(cli.IntOpt{Name: "cycles", Desc: "循环次数，0 表示一直循环", Value: 0})
	timeout := app.String(cli.StringOpt{Name: "timeout", Desc: "读帧超时时间", Value: "5s"})

	app.Action = func() {
		cfg, err := config.Load(*configPath)
		exitOn("加载配置", err)
		if *driver != "" {
			cfg.Camera.Driver = *driver
		}
		if *dev != "" {
			cfg.Camera.Device = *dev
		}
		exitOn("校验配置", cfg.Validate())
		wait, err := time.ParseDuration(*timeout)
		exitOn("解析超时", err)

		opener, err := camera.NewOpener(cfg.Camera.Driver, cfg.CameraOptions())
		exitOn("创建驱动", err)

		lp := loop.New()
		defer lp.Close()

		frames := make(chan string, 1)
		session := capture.New(lp, opener, func(frame string) {
			select {
			case frames <- frame:
			default:
			}
		}, cfg.Capture())
		defer session.Teardown()

		for iter := 1; *cycles == 0 || iter <= *cycles; iter++ {
			fmt.Printf("\n===== 循环第 %d 次 =====\n", iter)
			start := time.Now()
			session.Activate()
			if !readFrames(session, frames, *n, wait) {
				session.Teardown()
				lp.Close()
				os.Exit(1)
			}
			fmt.Printf("读取 %d 帧耗时 %s\n", *n, time.Since(start))

			session.Deactivate()
			// 停用后不会再有新帧，丢掉缓冲里的旧帧
			select {
			case <-frames:
			default:
			}
			st := session.Status()
			fmt.Printf("停用后状态: %s\n", st.State)
		}
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func readFrames(session *capture.Session, ch <-chan string, n int, timeout time.Duration) bool {
	for got := 0; got < n; {
		select {
		case frame := <-ch:
			got++
			fmt.Printf("帧 %d，长度: %s\n", got, humanize.Bytes(uint64(len(frame))))
		case <-time.After(timeout):
			st := session.Status()
			if st.Error != nil {
				fmt.Printf("读取帧超时，状态 %s: %s (%s)\n", st.State, st.Error.Message, st.Error.Category)
			} else {
				fmt.Printf("读取帧超时，状态 %s，重试 %d 次\n", st.State, st.RetryCount)
			}
			return false
		}
	}
	return true
}

func exitOn(step string, err error) {
	if err != nil {
		fmt.Printf("%s失败: %s\n", step, err)
		os.Exit(1)
	}
}
