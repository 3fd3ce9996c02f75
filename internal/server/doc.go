/*
包 server 提供 HTTP 服务器生命周期管理，支持非阻塞启动与优雅关闭。

# 概述

本包通过 Manager 封装 net/http.Server，统一管理监听、服务、关闭与
错误传播流程。Start 在返回前同步完成端口绑定，调用方可以把
"Start 成功" 当作监听器就绪的屏障，不需要任何固定延迟。

# 核心类型

  - Manager：HTTP 服务器管理器，持有 http.Server、net.Listener
    与异步错误通道，提供 Start/Shutdown 等生命周期方法。
  - Config：服务器配置，包含监听地址、读写超时、空闲超时、
    最大请求头大小与优雅关闭超时。

# 主要能力

  - 非阻塞启动：Start 绑定端口后在后台 goroutine 中运行服务。
  - 优雅关闭：Shutdown 在配置的超时内排空在途请求；超时后返回，
    剩余请求在后台继续完成。
  - 错误传播：Errors() 返回异步错误通道，供调用方监控服务异常。
*/
package server
